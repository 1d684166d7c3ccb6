package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful/linernotes/internal/engine"
)

type fixedTraces struct {
	traces []engine.GenerationTrace
}

func (f fixedTraces) Recent() []engine.GenerationTrace { return f.traces }

func TestGenerationTraces_ServesRecentTraces(t *testing.T) {
	h := NewDebugHandler(fixedTraces{traces: []engine.GenerationTrace{
		{RunID: "run-2", Artist: "Ada", Outcome: engine.OutcomeCompleted, NodeCount: 4, LinkCount: 3},
		{RunID: "run-1", Artist: "Bob", Outcome: engine.OutcomeNoCollaborators, NodeCount: 1},
	}})

	r := httptest.NewRequest(http.MethodGet, "/api/debug/generation-traces", nil)
	w := httptest.NewRecorder()
	h.GenerationTraces(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Traces []engine.GenerationTrace `json:"traces"`
		Count  int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Traces, 2)
	assert.Equal(t, "run-2", body.Traces[0].RunID, "newest first")
}

func TestGenerationTraces_LimitApplies(t *testing.T) {
	h := NewDebugHandler(fixedTraces{traces: []engine.GenerationTrace{
		{RunID: "run-3"}, {RunID: "run-2"}, {RunID: "run-1"},
	}})

	r := httptest.NewRequest(http.MethodGet, "/api/debug/generation-traces?limit=1", nil)
	w := httptest.NewRecorder()
	h.GenerationTraces(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Traces []engine.GenerationTrace `json:"traces"`
		Count  int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "run-3", body.Traces[0].RunID)
}

func TestGenerationTraces_EmptyRecorder(t *testing.T) {
	h := NewDebugHandler(fixedTraces{})

	r := httptest.NewRequest(http.MethodGet, "/api/debug/generation-traces", nil)
	w := httptest.NewRecorder()
	h.GenerationTraces(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Zero(t, body.Count)
}
