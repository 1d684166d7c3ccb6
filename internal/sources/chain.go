package sources

import (
	"context"
	"log"
	"time"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// ChainResult is the outcome of one fallback run.
type ChainResult struct {
	// Candidates are the winning adapter's candidates after the fake
	// filter. Empty when every adapter came up empty.
	Candidates []types.CollaboratorCandidate

	// Source names the winning adapter, or types.SourceNone.
	Source string

	// Probes records every adapter consulted, in order.
	Probes []Probe
}

// Failures counts probes that ended in an error rather than an empty
// result. Exhaustion with failures and exhaustion with clean empties are
// reported differently upstream.
func (r *ChainResult) Failures() int {
	n := 0
	for _, p := range r.Probes {
		if p.Err != "" {
			n++
		}
	}
	return n
}

// Chain consults source adapters in strict priority order. The first
// adapter with at least one candidate surviving the fake filter wins and
// no later adapter is consulted. Adapter errors are recovered by moving
// on; only context cancellation aborts a run.
type Chain struct {
	adapters []SourceAdapter
	filter   *FakeEntryFilter
}

// NewChain builds a chain over the adapters, consulted in argument order.
func NewChain(filter *FakeEntryFilter, adapters ...SourceAdapter) *Chain {
	if filter == nil {
		filter = NewFakeEntryFilter()
	}
	return &Chain{adapters: adapters, filter: filter}
}

// Collaborators runs the fallback chain for the artist.
func (c *Chain) Collaborators(ctx context.Context, artistName string) (*ChainResult, error) {
	result := &ChainResult{Source: types.SourceNone}
	for _, adapter := range c.adapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		candidates, err := adapter.Collaborators(ctx, artistName)
		probe := Probe{
			Adapter:  adapter.Name(),
			Seen:     len(candidates),
			Duration: time.Since(start),
		}
		if err != nil {
			probe.Err = err.Error()
			result.Probes = append(result.Probes, probe)
			log.Printf("sources: %s adapter failed for %q: %v", adapter.Name(), artistName, err)
			continue
		}

		kept := c.filter.Filter(candidates)
		probe.Kept = len(kept)
		result.Probes = append(result.Probes, probe)

		if len(kept) > 0 {
			result.Candidates = kept
			result.Source = adapter.Name()
			return result, nil
		}
	}
	return result, nil
}

// Detail resolves songs, albums, and the relationship for one specific
// collaboration through the adapters that support detail lookups, in chain
// order. Returns storage.ErrNotFound when none of them produced anything.
func (c *Chain) Detail(ctx context.Context, artist1, artist2 string) (*types.CollaborationDetail, error) {
	for _, adapter := range c.adapters {
		ds, ok := adapter.(DetailSource)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detail, err := ds.CollaborationDetail(ctx, artist1, artist2)
		if err != nil {
			log.Printf("sources: %s detail lookup for %q and %q failed: %v", adapter.Name(), artist1, artist2, err)
			continue
		}
		if detail != nil && !detail.IsEmpty() {
			return detail, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Filter exposes the chain's fake filter so callers validating names
// outside a full run (branch targets, for one) apply the same rules.
func (c *Chain) Filter() *FakeEntryFilter {
	return c.filter
}
