package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crateful/linernotes/internal/sources"
	"github.com/crateful/linernotes/pkg/types"
)

func traceFor(artist string) GenerationTrace {
	return GenerationTrace{
		RunID:     NewRunID(),
		Artist:    artist,
		StartedAt: time.Now(),
		Outcome:   OutcomeCompleted,
	}
}

func TestTraceRecorderRecentNewestFirst(t *testing.T) {
	recorder := NewTraceRecorder(10)
	recorder.Record(traceFor("Ada"))
	recorder.Record(traceFor("Bob"))
	recorder.Record(traceFor("Cyd"))

	recent := recorder.Recent()
	assert.Len(t, recent, 3)
	assert.Equal(t, "Cyd", recent[0].Artist)
	assert.Equal(t, "Bob", recent[1].Artist)
	assert.Equal(t, "Ada", recent[2].Artist)
}

func TestTraceRecorderEvictsOldest(t *testing.T) {
	recorder := NewTraceRecorder(3)
	for i := 1; i <= 5; i++ {
		recorder.Record(traceFor(fmt.Sprintf("Artist %d", i)))
	}

	recent := recorder.Recent()
	assert.Len(t, recent, 3)
	assert.Equal(t, "Artist 5", recent[0].Artist)
	assert.Equal(t, "Artist 4", recent[1].Artist)
	assert.Equal(t, "Artist 3", recent[2].Artist)
}

func TestTraceRecorderEmpty(t *testing.T) {
	recorder := NewTraceRecorder(10)
	assert.Empty(t, recorder.Recent())
}

func TestTraceRecorderClampsCapacity(t *testing.T) {
	recorder := NewTraceRecorder(0)
	recorder.Record(traceFor("Ada"))
	recorder.Record(traceFor("Bob"))

	recent := recorder.Recent()
	assert.Len(t, recent, 1)
	assert.Equal(t, "Bob", recent[0].Artist)
}

func TestTraceRecorderRecentIsACopy(t *testing.T) {
	recorder := NewTraceRecorder(10)
	recorder.Record(traceFor("Ada"))

	recent := recorder.Recent()
	recent[0].Artist = "Mallory"

	assert.Equal(t, "Ada", recorder.Recent()[0].Artist)
}

func TestStepFromProbe(t *testing.T) {
	probe := sources.Probe{
		Adapter:  types.SourceMusicgraph,
		Seen:     12,
		Kept:     9,
		Duration: 250 * time.Millisecond,
	}

	step := stepFromProbe(probe)
	assert.Equal(t, StageAdapter, step.Stage)
	assert.Equal(t, string(types.SourceMusicgraph), step.Adapter)
	assert.Equal(t, 12, step.Seen)
	assert.Equal(t, 9, step.Kept)
	assert.Equal(t, int64(250), step.DurationMS)
	assert.Empty(t, step.Err)
}

func TestStepFromProbeCarriesError(t *testing.T) {
	probe := sources.Probe{
		Adapter: types.SourceGenerative,
		Err:     "model endpoint unreachable",
	}

	step := stepFromProbe(probe)
	assert.Equal(t, "model endpoint unreachable", step.Err)
}
