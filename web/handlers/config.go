package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/crateful/linernotes/internal/config"
)

// ConfigHandlers contains HTTP handlers for runtime configuration.
type ConfigHandlers struct {
	config *config.Config
	db     *sql.DB // Optional; persists operator settings across restarts
}

// NewConfigHandlers creates a new ConfigHandlers instance. db may be nil,
// in which case changes apply to the running process only.
func NewConfigHandlers(cfg *config.Config, db *sql.DB) *ConfigHandlers {
	return &ConfigHandlers{
		config: cfg,
		db:     db,
	}
}

// GetConfig handles GET /api/config - the running configuration with API
// keys masked.
func (h *ConfigHandlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ToConfigResponse(h.config))
}

// UpdateGenerationRequest is the request body for PUT /api/config/generation.
type UpdateGenerationRequest struct {
	AllowHallucinationsDefault *bool `json:"allow_hallucinations_default"`
}

// UpdateGeneration handles PUT /api/config/generation - update generation
// defaults. The hallucinated-fill default is persisted to the settings
// table when a database is attached, so it survives restarts.
func (h *ConfigHandlers) UpdateGeneration(w http.ResponseWriter, r *http.Request) {
	var req UpdateGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	if req.AllowHallucinationsDefault != nil {
		h.config.Generation.DefaultAllowHallucinations = *req.AllowHallucinationsDefault
	}

	if h.db != nil {
		if err := h.config.SaveConfig(h.db); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to save config", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, GenerationConfigResponse{
		EnrichWorkers:              h.config.Generation.EnrichWorkers,
		AllowHallucinationsDefault: h.config.Generation.DefaultAllowHallucinations,
	})
}
