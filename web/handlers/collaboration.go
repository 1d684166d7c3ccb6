package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// CollaborationResolver resolves what two artists actually made together.
// Implemented by sources.Chain, which walks the same source order as
// network generation.
type CollaborationResolver interface {
	Detail(ctx context.Context, artist1, artist2 string) (*types.CollaborationDetail, error)
}

// CollaborationHandler handles collaboration detail lookups.
type CollaborationHandler struct {
	resolver CollaborationResolver
}

// NewCollaborationHandler creates a new CollaborationHandler instance.
func NewCollaborationHandler(resolver CollaborationResolver) *CollaborationHandler {
	return &CollaborationHandler{resolver: resolver}
}

// GetCollaboration handles GET /api/collaboration/{name1}/{name2} - resolve
// the songs and relationship behind one edge of the graph.
func (h *CollaborationHandler) GetCollaboration(w http.ResponseWriter, r *http.Request) {
	name1 := extractParam(r, "name1")
	name2 := extractParam(r, "name2")
	if name1 == "" || name2 == "" {
		respondError(w, http.StatusBadRequest, "both artist names are required", nil)
		return
	}

	detail, err := h.resolver.Detail(r.Context(), name1, name2)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no collaboration details found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "collaboration lookup failed", err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}
