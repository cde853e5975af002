/**
 * @description
 * HTTP handlers for the interactive deposit flow. The host shell drives the
 * deposit through these endpoints: initiate a session, report the interactive
 * surface closed, cancel, and read the phase/timeline snapshot.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 */

package api

import (
	"encoding/json"
	"net/http"
)

type initiateDepositRequest struct {
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	AssetCode   string `json:"asset_code"`
}

// InitiateDepositHandler opens a new interactive deposit session. Returns the
// snapshot (including the interactive URL the shell must open) on success.
func (h *WalletHandlers) InitiateDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req initiateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.InitiateDeposit(r.Context(), req.Amount, req.Destination, req.AssetCode); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, h.deposits.Snapshot())
}

// GetDepositHandler returns the current deposit phase, session, and timeline.
func (h *WalletHandlers) GetDepositHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.deposits.Snapshot())
}

// InteractionClosedHandler is called by the host shell when the interactive
// surface is detected as closed. Safe to call more than once.
func (h *WalletHandlers) InteractionClosedHandler(w http.ResponseWriter, r *http.Request) {
	h.deposits.OnInteractionClosed()
	h.writeJSON(w, http.StatusAccepted, h.deposits.Snapshot())
}

// CancelDepositHandler aborts an in-flight deposit.
func (h *WalletHandlers) CancelDepositHandler(w http.ResponseWriter, r *http.Request) {
	if !h.deposits.Cancel() {
		h.writeError(w, http.StatusConflict, "no deposit in progress")
		return
	}
	h.writeJSON(w, http.StatusOK, h.deposits.Snapshot())
}
