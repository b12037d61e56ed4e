// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rkarimi/encore/internal/domain/model"
)

// LeaderboardDependencies defines the interface for read-side queries.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, ownerID string, bucket model.Bucket, limit int) ([]model.Set, error)
	History(ctx context.Context, ownerID string, limit int) ([]model.Comparison, error)
}

// LeaderboardHandler handles leaderboard and history requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?bucket=B&limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	bucket := model.Bucket(r.URL.Query().Get("bucket"))
	limit, ok := h.parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}

	sets, err := h.deps.Leaderboard(r.Context(), userFrom(r), bucket, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sets == nil {
		sets = []model.Set{}
	}
	writeJSON(w, http.StatusOK, sets)
}

// HandleGetHistory handles GET /history?limit=N requests, newest first.
func (h *LeaderboardHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}

	comparisons, err := h.deps.History(r.Context(), userFrom(r), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if comparisons == nil {
		comparisons = []model.Comparison{}
	}
	writeJSON(w, http.StatusOK, comparisons)
}

// parseLimit reads the optional limit parameter. Absent means the service
// default; anything non-numeric, non-positive or above the cap is rejected.
func (h *LeaderboardHandler) parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > h.maxLimit {
		return 0, false
	}
	return n, true
}
