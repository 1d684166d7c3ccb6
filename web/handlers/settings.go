package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/crateful/linernotes/internal/services"
	"github.com/crateful/linernotes/pkg/types"
)

// SettingsHandlers contains HTTP handlers for disambiguation settings.
type SettingsHandlers struct {
	settingsService *services.SettingsService
}

// NewSettingsHandlers creates a new SettingsHandlers instance.
func NewSettingsHandlers(settingsService *services.SettingsService) *SettingsHandlers {
	return &SettingsHandlers{
		settingsService: settingsService,
	}
}

// GetDisambiguations handles GET /api/settings/disambiguations
// Returns the stored overrides and ambiguous-names list; empty lists when
// nothing has been saved yet.
func (h *SettingsHandlers) GetDisambiguations(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.Disambiguations(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get disambiguation settings", err)
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// UpdateDisambiguations handles PUT /api/settings/disambiguations
// Replaces the override table and the ambiguous-names list. Cached networks
// of artists whose override changed are invalidated.
func (h *SettingsHandlers) UpdateDisambiguations(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateDisambiguationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	// Validate overrides and ambiguous names
	if err := validateDisambiguations(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid disambiguation settings", err)
		return
	}

	settings, err := h.settingsService.UpdateDisambiguations(r.Context(), &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save disambiguation settings", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "disambiguation settings updated successfully",
		"settings": settings,
	})
}

// Validation helper functions

func validateDisambiguations(req *types.UpdateDisambiguationsRequest) error {
	for _, o := range req.Overrides {
		if strings.TrimSpace(o.Name) == "" {
			return NewValidationError("override artist name is required")
		}
		if strings.TrimSpace(o.CanonicalID) == "" {
			return NewValidationError("override canonical id is required")
		}
	}
	for _, name := range req.AmbiguousNames {
		if strings.TrimSpace(name) == "" {
			return NewValidationError("ambiguous name must not be blank")
		}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	message string
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.message
}
