// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/rkarimi/encore/internal/app"
)

// RankingDependencies defines the interface for the session workflow.
type RankingDependencies interface {
	OpenSession(ctx context.Context, ownerID, setID string) (service.OpenResult, error)
	Decide(ctx context.Context, ownerID, winnerID, token string) (service.DecideResult, error)
	Cancel(ctx context.Context, ownerID string) error
}

// RankingsHandler handles ranking session requests.
type RankingsHandler struct {
	deps RankingDependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingDependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleOpen handles POST /rankings/open requests.
func (h *RankingsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if strings.TrimSpace(req.SetID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	res, err := h.deps.OpenSession(r.Context(), userFrom(r), req.SetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDecide handles POST /rankings/decide requests. A resubmitted token
// is acknowledged without re-applying the rating transfer.
func (h *RankingsHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if strings.TrimSpace(req.WinnerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	res, err := h.deps.Decide(r.Context(), userFrom(r), req.WinnerID, req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCancel handles POST /rankings/cancel requests.
func (h *RankingsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Cancel(r.Context(), userFrom(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Closed: true})
}
