// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rkarimi/encore/internal/adapters/catalog"
	service "github.com/rkarimi/encore/internal/app"
	"github.com/rkarimi/encore/internal/domain/model"
)

// SetDependencies defines the interface for set ingestion.
type SetDependencies interface {
	LogSet(ctx context.Context, ownerID string, cand service.CandidateSet, bucket model.Bucket) (model.Set, error)
}

// SetsHandler handles set ingestion requests.
type SetsHandler struct {
	deps SetDependencies
}

// NewSetsHandler creates a new sets handler.
func NewSetsHandler(deps SetDependencies) *SetsHandler {
	return &SetsHandler{deps: deps}
}

// HandlePostSet handles POST /sets requests. The payload is normalized
// through the catalog layer before anything touches storage.
func (h *SetsHandler) HandlePostSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	cand, err := catalog.Normalize(req.envelope())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	set, err := h.deps.LogSet(r.Context(), userFrom(r), cand, model.Bucket(req.Bucket))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}
