/**
 * @description
 * This file contains the HTTP handlers for the wallet-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the coordination logic layer.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http, strconv: Standard Go libraries.
 * - internal/app, internal/domain: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/stellawallet/wallet-service/internal/app"
	"github.com/stellawallet/wallet-service/internal/domain"
)

// WalletHandlers holds the application services that handlers will use.
type WalletHandlers struct {
	service  *app.Service
	deposits *app.InteractiveDepositOrchestrator
	queue    *app.NotificationQueue
}

// NewWalletHandlers creates a new instance of WalletHandlers.
func NewWalletHandlers(service *app.Service, deposits *app.InteractiveDepositOrchestrator, queue *app.NotificationQueue) *WalletHandlers {
	return &WalletHandlers{service: service, deposits: deposits, queue: queue}
}

type sessionRequest struct {
	AccountID string `json:"account_id"`
}

type sessionResponse struct {
	AccountID string `json:"account_id"`
	Active    bool   `json:"active"`
}

// StartSessionHandler begins watching an account, replacing any prior session.
func (h *WalletHandlers) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.StartSession(r.Context(), req.AccountID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sessionResponse{AccountID: req.AccountID, Active: true})
}

// StopSessionHandler tears down the active session.
func (h *WalletHandlers) StopSessionHandler(w http.ResponseWriter, r *http.Request) {
	h.service.StopSession()
	w.WriteHeader(http.StatusNoContent)
}

// GetSessionHandler reports the active session, if any.
func (h *WalletHandlers) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	accountID := h.service.ActiveAccount()
	h.writeJSON(w, http.StatusOK, sessionResponse{AccountID: accountID, Active: accountID != ""})
}

// GetBalanceHandler returns the current native balance snapshot, fetching a
// fresh observation from the ledger.
func (h *WalletHandlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.RefreshBalance(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// GetHistoryHandler lists the account's recent payments, newest first.
func (h *WalletHandlers) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.History(r.Context(), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// GetObservedPaymentsHandler lists locally persisted inbound payments.
func (h *WalletHandlers) GetObservedPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ObservedPayments(r.Context(), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

type sendPaymentRequest struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	AssetCode   string `json:"asset_code"`
}

// SendPaymentHandler validates and submits a classic payment.
func (h *WalletHandlers) SendPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req sendPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.SendPayment(r.Context(), req.Destination, req.Amount, req.AssetCode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

type accountTypeResponse struct {
	Address string             `json:"address"`
	Type    domain.AccountType `json:"type"`
}

// GetAccountTypeHandler classifies an arbitrary address string.
func (h *WalletHandlers) GetAccountTypeHandler(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		h.writeError(w, http.StatusBadRequest, "address query parameter is required")
		return
	}
	h.writeJSON(w, http.StatusOK, accountTypeResponse{Address: address, Type: h.service.AccountType(address)})
}

// queryLimit parses the optional ?limit= parameter; 0 lets the service apply
// its default.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// writeServiceError maps service-layer errors to HTTP statuses.
func (h *WalletHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNoActiveSession):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrPersistenceDisabled):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrProtocolFailure):
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *WalletHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *WalletHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
