package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/crateful/linernotes/internal/config"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// NetworkGenerator is the slice of the engine the network endpoints use.
// Implemented by engine.NetworkBuilder.
type NetworkGenerator interface {
	BuildNetwork(ctx context.Context, artistName string, allowHallucinations bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error)
	BuildNetworkByID(ctx context.Context, artistID string, allowHallucinations bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error)
	InvalidateNetwork(ctx context.Context, artistName string) error
}

// APIHandlers contains HTTP handlers for the network and artist endpoints.
type APIHandlers struct {
	builder NetworkGenerator
	artists storage.ArtistStore
	config  *config.Config
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(builder NetworkGenerator, artists storage.ArtistStore, cfg *config.Config) *APIHandlers {
	return &APIHandlers{
		builder: builder,
		artists: artists,
		config:  cfg,
	}
}

// GetNetwork handles GET /api/network/{artistName} - serve the collaboration
// network for an artist, generating it when no trusted cached document exists.
// The allowHallucinations query parameter opts into the creative fill for
// artists with no verifiable collaborators; when absent the configured
// default applies.
func (h *APIHandlers) GetNetwork(w http.ResponseWriter, r *http.Request) {
	name := extractParam(r, "artistName")
	if name == "" {
		respondError(w, http.StatusBadRequest, "artist name is required", nil)
		return
	}

	allow := parseBool(r.URL.Query().Get("allowHallucinations"), h.config.Generation.DefaultAllowHallucinations)

	result, sentinel, err := h.builder.BuildNetwork(r.Context(), name, allow)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "artist not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to generate network", err)
		return
	}

	// Empty generation without the hallucinated fill resolves to the
	// no-collaborators sentinel rather than an empty graph.
	if sentinel != nil {
		respondJSON(w, http.StatusOK, sentinel)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetNetworkByID handles GET /api/network-by-id/{artistId} - same as
// GetNetwork but keyed by canonical id, for clients that already resolved
// the artist through the disambiguation picker.
func (h *APIHandlers) GetNetworkByID(w http.ResponseWriter, r *http.Request) {
	id := extractParam(r, "artistId")
	if id == "" {
		respondError(w, http.StatusBadRequest, "artist ID is required", nil)
		return
	}

	allow := parseBool(r.URL.Query().Get("allowHallucinations"), h.config.Generation.DefaultAllowHallucinations)

	result, sentinel, err := h.builder.BuildNetworkByID(r.Context(), id, allow)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "artist not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to generate network", err)
		return
	}

	if sentinel != nil {
		respondJSON(w, http.StatusOK, sentinel)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// DeleteNetwork handles DELETE /api/network/{artistName} - drop the cached
// network document so the next read regenerates.
func (h *APIHandlers) DeleteNetwork(w http.ResponseWriter, r *http.Request) {
	name := extractParam(r, "artistName")
	if name == "" {
		respondError(w, http.StatusBadRequest, "artist name is required", nil)
		return
	}

	if err := h.builder.InvalidateNetwork(r.Context(), name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "artist not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to invalidate network", err)
		return
	}

	// Return 204 No Content
	w.WriteHeader(http.StatusNoContent)
}

// GetArtist handles GET /api/artists/{id} - get a single identity record.
func (h *APIHandlers) GetArtist(w http.ResponseWriter, r *http.Request) {
	id := extractParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "artist ID is required", nil)
		return
	}

	artist, err := h.artists.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "artist not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get artist", err)
		return
	}

	respondJSON(w, http.StatusOK, artist)
}

// ListArtists handles GET /api/artists - list identity records with
// pagination and sorting. Backs the catalog admin view.
func (h *APIHandlers) ListArtists(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Page:      parseInt(r.URL.Query().Get("page"), 1),
		Limit:     parseInt(r.URL.Query().Get("limit"), 10),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	// Normalize options (applies defaults, clamps the limit)
	opts.Normalize()

	result, err := h.artists.List(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list artists", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Helper functions

// extractParam extracts a path parameter from the request.
func extractParam(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// parseBool parses a boolean from a string, returning defaultValue if the
// string is empty or unparseable.
func parseBool(s string, defaultValue bool) bool {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent; nothing left to do but log.
		log.Printf("failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
