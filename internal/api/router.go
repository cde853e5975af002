/**
 * @description
 * This file sets up the HTTP router for the wallet-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the host shell's origin.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// WalletRoutes creates and returns a new router for the wallet service.
func WalletRoutes(h *WalletHandlers) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Post("/session", h.StartSessionHandler)
		r.Delete("/session", h.StopSessionHandler)
		r.Get("/session", h.GetSessionHandler)

		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/history", h.GetHistoryHandler)
		r.Get("/payments/observed", h.GetObservedPaymentsHandler)
		r.Post("/payments", h.SendPaymentHandler)
		r.Get("/account-type", h.GetAccountTypeHandler)
	})

	r.Route("/deposits", func(r chi.Router) {
		r.Post("/", h.InitiateDepositHandler)
		r.Get("/", h.GetDepositHandler)
		r.Post("/interaction-closed", h.InteractionClosedHandler)
		r.Post("/cancel", h.CancelDepositHandler)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.ListNotificationsHandler)
		r.Delete("/{id}", h.DismissNotificationHandler)
	})

	return r
}
