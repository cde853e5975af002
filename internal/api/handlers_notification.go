/**
 * @description
 * HTTP handlers for the transient notification queue: list active alerts and
 * dismiss one before its TTL elapses.
 *
 * @dependencies
 * - net/http: Standard Go library.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 */

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListNotificationsHandler returns the notifications that have not expired,
// oldest first.
func (h *WalletHandlers) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.queue.Active())
}

// DismissNotificationHandler removes one notification by id.
func (h *WalletHandlers) DismissNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "notification id is required")
		return
	}
	if !h.queue.Dismiss(id) {
		h.writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
