package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// QueryEmbedder produces embeddings for search queries. Implemented by
// llm.EmbeddingGenerator.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchHandler handles artist disambiguation search.
type SearchHandler struct {
	search   storage.SearchProvider
	embedder QueryEmbedder
}

// NewSearchHandler creates a new SearchHandler instance. embedder may be
// nil, which disables the semantic half of the search.
func NewSearchHandler(search storage.SearchProvider, embedder QueryEmbedder) *SearchHandler {
	return &SearchHandler{
		search:   search,
		embedder: embedder,
	}
}

// ArtistOptions handles GET /api/artist-options/{query} — identity-store
// lookup backing the disambiguation picker.
//
// Full-text matches come first (FTS5 on sqlite, tsvector on postgres, with
// a relaxed OR retry when the strict query misses). When an embedding
// generator is configured, bio-similarity hits fill the remaining slots.
//
// Query parameters:
//   - limit (int) – max options to return (default 10, max 50)
func (h *SearchHandler) ArtistOptions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(extractParam(r, "query"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "search query is required", nil)
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 10)
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	opts := storage.SearchOptions{
		Query:         query,
		Limit:         limit,
		FuzzyFallback: true,
	}

	result, err := h.search.SearchArtists(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "artist search failed", err)
		return
	}

	options := make([]types.ArtistOption, 0, len(result.Items))
	seen := make(map[string]bool, len(result.Items))
	for _, artist := range result.Items {
		options = append(options, toOption(artist))
		seen[artist.ID] = true
	}

	if h.embedder != nil && len(options) < limit {
		options = h.appendVectorMatches(r.Context(), query, options, seen, limit)
	}

	respondJSON(w, http.StatusOK, options)
}

// appendVectorMatches embeds the query and adds bio-similarity hits the text
// search missed. Best-effort: any failure leaves the text results standing.
func (h *SearchHandler) appendVectorMatches(ctx context.Context, query string, options []types.ArtistOption, seen map[string]bool, limit int) []types.ArtistOption {
	embedding, err := h.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("SearchHandler: query embedding failed: %v", err)
		return options
	}

	result, err := h.search.VectorSearch(ctx, embedding, storage.SearchOptions{Limit: limit})
	if err != nil {
		// Stores without embedding support report ErrInvalidInput.
		log.Printf("SearchHandler: vector search failed: %v", err)
		return options
	}

	for _, artist := range result.Items {
		if len(options) >= limit {
			break
		}
		if seen[artist.ID] {
			continue
		}
		options = append(options, toOption(artist))
		seen[artist.ID] = true
	}
	return options
}

// toOption trims an identity record down to the disambiguation picker shape.
func toOption(artist types.ArtistIdentity) types.ArtistOption {
	return types.ArtistOption{
		ID:             artist.ID,
		Name:           artist.Name,
		Bio:            artist.Bio,
		Disambiguation: artist.Disambiguation,
	}
}
