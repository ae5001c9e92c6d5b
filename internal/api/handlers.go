// Package api exposes the query service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tigerroll/cropwx/internal/query"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// Envelope wraps every successful response.
type Envelope[T any] struct {
	Payload query.Page[T] `json:"payload"`
}

// HealthChecker reports whether the datasource can be reached.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Handlers serves the read endpoints.
type Handlers struct {
	svc    *query.Service
	health HealthChecker
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *query.Service, health HealthChecker) *Handlers {
	return &Handlers{svc: svc, health: health}
}

// Weather handles GET /api/weather.
func (h *Handlers) Weather(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.svc, query.Weather)
}

// Yield handles GET /api/yield.
func (h *Handlers) Yield(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.svc, query.Yield)
}

// WeatherStats handles GET /api/weather/stats.
func (h *Handlers) WeatherStats(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.svc, query.WeatherStats)
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Check(r.Context()); err != nil {
			logger.Warnf("Health check failed: %v", err)
			respondError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func serve[T any](w http.ResponseWriter, r *http.Request, svc *query.Service, res query.Resource[T]) {
	page, err := query.Find(r.Context(), svc, res, r.URL.Query())
	if err != nil {
		if exception.IsValidationError(err) {
			respondError(w, exception.ExtractErrorMessage(err), http.StatusBadRequest)
			return
		}
		logger.Errorf("Query %s failed: %v", res.Name, err)
		respondError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, Envelope[T]{Payload: page})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}
