package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware(handler.log))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Valuation
	api.HandleFunc("/users/{userID}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/users/{userID}/dashboard", handler.GetDashboard).Methods("GET")

	// Ledger
	api.HandleFunc("/users/{userID}/transactions", handler.ListTransactions).Methods("GET")
	api.HandleFunc("/users/{userID}/transactions", handler.ImportTransactions).Methods("POST")

	// Market data
	api.HandleFunc("/prices", handler.UpsertPrices).Methods("POST")
	api.HandleFunc("/benchmarks/{name}/rates", handler.UpsertBenchmarkRates).Methods("POST")
	api.HandleFunc("/classifications/{ticker}", handler.SetClassification).Methods("PUT")

	return r
}
