package engine

import (
	"sync"
	"time"

	"github.com/crateful/linernotes/internal/sources"
)

// TraceStage classifies each step of a generation trace.
type TraceStage string

const (
	// StageAdapter records one adapter consultation from the source chain.
	StageAdapter TraceStage = "adapter"

	// StageCreativePass records the opt-in hallucinated fill attempt.
	StageCreativePass TraceStage = "creative_pass"

	// StageConsolidate records candidate-to-node consolidation.
	StageConsolidate TraceStage = "consolidate"

	// StageExpand records branch expansion.
	StageExpand TraceStage = "expand"

	// StageEnrich records metadata enrichment.
	StageEnrich TraceStage = "enrich"

	// StagePersist records the cache write.
	StagePersist TraceStage = "persist"
)

// Trace outcomes.
const (
	// OutcomeCompleted means a multi-node network was generated.
	OutcomeCompleted = "completed"

	// OutcomeNoCollaborators means every source came back empty and the
	// caller was handed the single-node decision point.
	OutcomeNoCollaborators = "no_collaborators"

	// OutcomeExhausted means every adapter failed outright and the build
	// fell back to the degenerate root-only network.
	OutcomeExhausted = "exhausted"

	// OutcomeAborted means the caller cancelled mid-build.
	OutcomeAborted = "aborted"
)

// TraceStep is one recorded step of a generation run.
type TraceStep struct {
	// Stage identifies the pipeline stage.
	Stage TraceStage `json:"stage"`

	// Adapter is populated for adapter and creative_pass steps.
	Adapter string `json:"adapter,omitempty"`

	// Seen is how many candidates the step received.
	Seen int `json:"seen,omitempty"`

	// Kept is how many candidates survived the step.
	Kept int `json:"kept,omitempty"`

	// DurationMS is the step duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Err carries the failure message for steps that failed.
	Err string `json:"err,omitempty"`
}

// GenerationTrace is the full record of one build, retained for the debug
// endpoint.
type GenerationTrace struct {
	// RunID ties the trace to lifecycle events and the persisted document.
	RunID string `json:"run_id"`

	// Artist is the root artist's display name.
	Artist string `json:"artist"`

	// AllowHallucinations mirrors the caller's flag.
	AllowHallucinations bool `json:"allow_hallucinations"`

	// StartedAt is when generation began.
	StartedAt time.Time `json:"started_at"`

	// DurationMS is the total build duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Steps lists the recorded pipeline steps in order.
	Steps []TraceStep `json:"steps"`

	// Outcome is one of the Outcome constants.
	Outcome string `json:"outcome"`

	// Source is the adapter that won, or "none".
	Source string `json:"source,omitempty"`

	// NodeCount and LinkCount describe the finished document.
	NodeCount int `json:"node_count"`
	LinkCount int `json:"link_count"`
}

// stepFromProbe converts a chain probe into a trace step.
func stepFromProbe(p sources.Probe) TraceStep {
	return TraceStep{
		Stage:      StageAdapter,
		Adapter:    p.Adapter,
		Seen:       p.Seen,
		Kept:       p.Kept,
		DurationMS: p.Duration.Milliseconds(),
		Err:        p.Err,
	}
}

// TraceRecorder keeps the most recent generation traces in a fixed-size
// ring. Writers overwrite the oldest entry once the ring is full.
type TraceRecorder struct {
	mu     sync.Mutex
	traces []GenerationTrace
	next   int
	filled bool
}

// NewTraceRecorder creates a recorder holding up to capacity traces.
func NewTraceRecorder(capacity int) *TraceRecorder {
	if capacity < 1 {
		capacity = 1
	}
	return &TraceRecorder{traces: make([]GenerationTrace, capacity)}
}

// Record stores a finished trace, evicting the oldest when full.
func (r *TraceRecorder) Record(trace GenerationTrace) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.traces[r.next] = trace
	r.next++
	if r.next == len(r.traces) {
		r.next = 0
		r.filled = true
	}
}

// Recent returns the retained traces, newest first.
func (r *TraceRecorder) Recent() []GenerationTrace {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.filled {
		size = len(r.traces)
	}

	out := make([]GenerationTrace, 0, size)
	for i := 1; i <= size; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.traces)
		}
		out = append(out, r.traces[idx])
	}
	return out
}
