package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-valuation-service/internal/engine"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
	"github.com/trogers1052/portfolio-valuation-service/internal/portfolio"
)

// PortfolioService is the application surface the handlers expose
type PortfolioService interface {
	History(ctx context.Context, userID string) ([]models.DailyValuationPoint, error)
	Dashboard(ctx context.Context, userID string) (*models.Dashboard, error)
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	RecordTransactions(ctx context.Context, userID string, txs []models.Transaction) ([]models.Transaction, error)
	UpsertPrices(ctx context.Context, prices []models.PriceTick) error
	UpsertBenchmarkRates(ctx context.Context, benchmark string, rates []models.BenchmarkTick) error
	SetClassification(ctx context.Context, c models.Classification) (models.Classification, error)
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc    PortfolioService
	checks map[string]HealthCheck
	log    zerolog.Logger
}

// NewHandler creates a new Handler. checks are run by the health endpoint.
func NewHandler(svc PortfolioService, checks map[string]HealthCheck, log zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		checks: checks,
		log:    log.With().Str("component", "api").Logger(),
	}
}

// GetHistory handles GET /users/{userID}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// GetDashboard handles GET /users/{userID}/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.svc.Dashboard(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// ListTransactions handles GET /users/{userID}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.ListTransactions(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// ImportTransactions handles POST /users/{userID}/transactions
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Transactions) == 0 {
		respondMessage(w, http.StatusBadRequest, "transactions are required")
		return
	}

	recorded, err := h.svc.RecordTransactions(r.Context(), mux.Vars(r)["userID"], req.Transactions)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"imported":     len(recorded),
		"transactions": recorded,
	})
}

// UpsertPrices handles POST /prices
func (h *Handler) UpsertPrices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prices []models.PriceTick `json:"prices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.UpsertPrices(r.Context(), req.Prices); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"upserted": len(req.Prices)})
}

// UpsertBenchmarkRates handles POST /benchmarks/{name}/rates
func (h *Handler) UpsertBenchmarkRates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rates []models.BenchmarkTick `json:"rates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.UpsertBenchmarkRates(r.Context(), mux.Vars(r)["name"], req.Rates); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"upserted": len(req.Rates)})
}

// SetClassification handles PUT /classifications/{ticker}
func (h *Handler) SetClassification(w http.ResponseWriter, r *http.Request) {
	var c models.Classification
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.Ticker = mux.Vars(r)["ticker"]

	stored, err := h.svc.SetClassification(r.Context(), c)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := map[string]string{"status": "healthy"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result["status"] = "degraded"
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	respondJSON(w, status, result)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, engine.ErrInvalidTransaction) || errors.Is(err, portfolio.ErrInvalidInput) {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error().Err(err).
		Str("path", r.URL.Path).
		Str("request_id", RequestID(r.Context())).
		Msg("request failed")
	respondMessage(w, http.StatusInternalServerError, err.Error())
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
