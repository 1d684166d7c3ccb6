package handlers

import (
	"net/http"
	"strconv"

	"github.com/crateful/linernotes/internal/engine"
)

// TraceSource provides recent generation traces.
// Implemented by engine.TraceRecorder.
type TraceSource interface {
	Recent() []engine.GenerationTrace
}

// DebugHandler exposes pipeline debugging endpoints.
type DebugHandler struct {
	traces TraceSource
}

// NewDebugHandler creates a DebugHandler over the given trace source.
func NewDebugHandler(traces TraceSource) *DebugHandler {
	return &DebugHandler{traces: traces}
}

// GenerationTraces handles GET /api/debug/generation-traces
//
// Query parameters:
//   - limit (int) – max traces to return (default: all retained)
//
// Traces are returned newest first: run id, artist, per-stage steps with
// the adapter consulted and candidates seen/kept, and the outcome.
func (h *DebugHandler) GenerationTraces(w http.ResponseWriter, r *http.Request) {
	traces := h.traces.Recent()

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < len(traces) {
			traces = traces[:n]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"traces": traces,
		"count":  len(traces),
	})
}
