// Package engine builds collaboration network documents. The NetworkBuilder
// orchestrates one request end to end: resolve the artist against the
// identity store, consult the source adapter chain, consolidate candidates
// into nodes, expand second-ring branches, enrich metadata and persist the
// finished document in the network cache.
package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Config holds configuration for the generation pipeline.
type Config struct {
	// EnrichWorkers is the number of concurrent metadata lookups during
	// enrichment (default: 4).
	EnrichWorkers int

	// TraceCapacity is how many recent generation traces the builder
	// retains for the debug endpoint (default: 50).
	TraceCapacity int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnrichWorkers: 4,
		TraceCapacity: 50,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.EnrichWorkers < 1 {
		return fmt.Errorf("EnrichWorkers must be >= 1, got %d", c.EnrichWorkers)
	}

	if c.TraceCapacity < 1 {
		return fmt.Errorf("TraceCapacity must be >= 1, got %d", c.TraceCapacity)
	}

	return nil
}

// NewRunID returns a fresh identifier for one generation run. Run ids tie
// together lifecycle events, the trace buffer and the persisted document.
func NewRunID() string {
	return uuid.NewString()
}
