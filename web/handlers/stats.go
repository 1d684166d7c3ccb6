package handlers

import (
	"log"
	"net/http"

	"github.com/crateful/linernotes/internal/storage"
)

// GenerationTotalsGetter reports lifetime generation counters.
// Implemented by EventBridge.
type GenerationTotalsGetter interface {
	GenerationTotals() (started, completed, failed int)
}

// StatsHandler handles statistics endpoint requests.
type StatsHandler struct {
	artists storage.ArtistStore
	cache   storage.NetworkCache
	totals  GenerationTotalsGetter
}

// NewStatsHandler creates a new StatsHandler instance.
// totals is optional (may be nil).
func NewStatsHandler(artists storage.ArtistStore, cache storage.NetworkCache, totals GenerationTotalsGetter) *StatsHandler {
	return &StatsHandler{
		artists: artists,
		cache:   cache,
		totals:  totals,
	}
}

// GetStats handles GET /api/stats - returns system statistics: identity
// store size, cached network breakdown and generation counters.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	artistCount, err := h.artists.Count(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count artists", err)
		return
	}

	stats := StatsResponse{
		Artists:          artistCount,
		NetworksBySource: map[string]int{},
	}

	// Cache stats are best-effort; the artist count alone is still useful.
	cacheStats, err := h.cache.NetworkStats(ctx)
	if err != nil {
		log.Printf("StatsHandler: network stats unavailable: %v", err)
	} else {
		stats.CachedNetworks = cacheStats.Total
		stats.SingleNodeNetworks = cacheStats.SingleNode
		if cacheStats.BySource != nil {
			stats.NetworksBySource = cacheStats.BySource
		}
	}

	if h.totals != nil {
		stats.Generations.Started, stats.Generations.Completed, stats.Generations.Failed = h.totals.GenerationTotals()
	}

	respondJSON(w, http.StatusOK, stats)
}
