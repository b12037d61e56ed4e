// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rkarimi/encore/internal/adapters/catalog"
	service "github.com/rkarimi/encore/internal/app"
	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
	"github.com/rkarimi/encore/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	LogSet(ctx context.Context, ownerID string, cand service.CandidateSet, bucket model.Bucket) (model.Set, error)
	OpenSession(ctx context.Context, ownerID, setID string) (service.OpenResult, error)
	Decide(ctx context.Context, ownerID, winnerID, token string) (service.DecideResult, error)
	Cancel(ctx context.Context, ownerID string) error
	Leaderboard(ctx context.Context, ownerID string, bucket model.Bucket, limit int) ([]model.Set, error)
	History(ctx context.Context, ownerID string, limit int) ([]model.Comparison, error)
	Stats() map[string]interface{}
}

// Server wires HTTP routes for the ranking API.
type Server struct {
	setsHandler        *SetsHandler
	rankingsHandler    *RankingsHandler
	leaderboardHandler *LeaderboardHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		setsHandler:        NewSetsHandler(deps),
		rankingsHandler:    NewRankingsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
	}
}

// Router builds the route tree. Operational endpoints stay outside the
// user-scoped group so probes and scrapers need no identity header.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/sets", MetricsMiddleware(s.setsHandler.HandlePostSet, "sets"))
		r.Post("/rankings/open", MetricsMiddleware(s.rankingsHandler.HandleOpen, "rankings_open"))
		r.Post("/rankings/decide", MetricsMiddleware(s.rankingsHandler.HandleDecide, "rankings_decide"))
		r.Post("/rankings/cancel", MetricsMiddleware(s.rankingsHandler.HandleCancel, "rankings_cancel"))
		r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Get("/history", MetricsMiddleware(s.leaderboardHandler.HandleGetHistory, "history"))
	})

	return r
}

// setRequest mirrors the wire schema for POST /sets.
type setRequest struct {
	Provider string          `json:"provider"`
	Payload  json.RawMessage `json:"payload"`
	Bucket   string          `json:"bucket"`
}

func (s setRequest) envelope() catalog.Envelope {
	return catalog.Envelope{Provider: s.Provider, Payload: s.Payload}
}

type openRequest struct {
	SetID string `json:"set_id"`
}

type decideRequest struct {
	WinnerID string `json:"winner_id"`
	Token    string `json:"token,omitempty"`
}

type cancelResponse struct {
	Closed bool `json:"closed"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates a service error into its HTTP shape.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// statusFor maps the domain error taxonomy onto HTTP statuses. Unclassified
// errors are treated as internal.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrAuth):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, errs.ErrTransient):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
