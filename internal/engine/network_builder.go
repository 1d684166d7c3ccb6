package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/crateful/linernotes/internal/sources"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// CreativeSource is the opt-in hallucinated fill: a generative pass with
// the factual constraints relaxed, consulted only after the whole adapter
// chain came back empty and the caller asked for it.
type CreativeSource interface {
	CreativeCollaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error)
}

// NetworkBuilder orchestrates one network build end to end: resolve the
// artist, check the cache, run the source chain, consolidate, expand,
// enrich and persist. One builder serves all requests; everything mutable
// during a build is owned by that build alone.
type NetworkBuilder struct {
	config  Config
	artists storage.ArtistStore
	cache   storage.NetworkCache
	chain   *sources.Chain

	// Optional collaborators, attached by the server during wiring.
	settings storage.SettingsStore
	creative CreativeSource
	roles    sources.RoleDetector
	tops     sources.TopSource
	enricher *MetadataEnricher

	consolidator *NodeConsolidator
	expander     *BranchExpander
	traces       *TraceRecorder

	// Callbacks
	mu                    sync.Mutex
	onGenerationStarted   func(runID, artistName string)
	onSourceSelected      func(runID, artistName, source string, candidates int)
	onGenerationCompleted func(runID, artistName string, nodes, links int)
	onGenerationFailed    func(runID, artistName, reason string)
}

// NewNetworkBuilder creates a builder over the required collaborators.
// Use DefaultConfig() for sensible defaults.
func NewNetworkBuilder(builderConfig Config, artists storage.ArtistStore, cache storage.NetworkCache, chain *sources.Chain) (*NetworkBuilder, error) {
	if artists == nil {
		return nil, fmt.Errorf("artist store is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("network cache is required")
	}
	if chain == nil {
		return nil, fmt.Errorf("source chain is required")
	}
	if err := builderConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &NetworkBuilder{
		config:       builderConfig,
		artists:      artists,
		cache:        cache,
		chain:        chain,
		consolidator: NewNodeConsolidator(),
		expander:     NewBranchExpander(chain.Filter()),
		traces:       NewTraceRecorder(builderConfig.TraceCapacity),
	}, nil
}

// SetSettingsStore attaches the disambiguation settings store, enabling
// the ambiguous-names cache bypass.
func (b *NetworkBuilder) SetSettingsStore(settings storage.SettingsStore) {
	b.settings = settings
}

// SetCreativeSource attaches the hallucinated-fill source. Without one,
// allowHallucinations requests fall straight through to the single-node
// decision point.
func (b *NetworkBuilder) SetCreativeSource(creative CreativeSource) {
	b.creative = creative
}

// SetRoleDetector attaches the root role detection query. Without one the
// root is seeded with the artist role.
func (b *NetworkBuilder) SetRoleDetector(roles sources.RoleDetector) {
	b.roles = roles
}

// SetTopSource attaches the branch-target query. Adapters like musicgraph
// and encyclopedia return candidates without top collaborators of their
// own; without a top source those builds end at ring one.
func (b *NetworkBuilder) SetTopSource(tops sources.TopSource) {
	b.tops = tops
}

// SetEnricher attaches the metadata enricher.
func (b *NetworkBuilder) SetEnricher(enricher *MetadataEnricher) {
	b.enricher = enricher
}

// SetOnGenerationStarted sets a callback fired when a build misses the
// cache and generation begins.
func (b *NetworkBuilder) SetOnGenerationStarted(callback func(runID, artistName string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onGenerationStarted = callback
}

// SetOnSourceSelected sets a callback fired when an adapter wins the
// fallback, with its candidate count.
func (b *NetworkBuilder) SetOnSourceSelected(callback func(runID, artistName, source string, candidates int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onSourceSelected = callback
}

// SetOnGenerationCompleted sets a callback fired when a build finishes.
// This is useful for triggering UI updates via WebSocket.
func (b *NetworkBuilder) SetOnGenerationCompleted(callback func(runID, artistName string, nodes, links int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onGenerationCompleted = callback
}

// SetOnGenerationFailed sets a callback fired when a build aborts.
func (b *NetworkBuilder) SetOnGenerationFailed(callback func(runID, artistName, reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onGenerationFailed = callback
}

// callbackSet is the frozen set of lifecycle callbacks one build fires.
type callbackSet struct {
	started        func(runID, artistName string)
	sourceSelected func(runID, artistName, source string, candidates int)
	completed      func(runID, artistName string, nodes, links int)
	failed         func(runID, artistName, reason string)
}

// callbacks snapshots the registered callbacks. Each build takes one
// snapshot up front so a concurrent Set call cannot race the reads.
func (b *NetworkBuilder) callbacks() callbackSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return callbackSet{
		started:        b.onGenerationStarted,
		sourceSelected: b.onSourceSelected,
		completed:      b.onGenerationCompleted,
		failed:         b.onGenerationFailed,
	}
}

// Traces returns the recorder holding recent generation traces.
func (b *NetworkBuilder) Traces() *TraceRecorder {
	return b.traces
}

// BuildNetwork builds (or serves from cache) the collaboration network for
// the named artist. Unknown names fail with storage.ErrNotFound: the
// system never invents an identity. Exactly one of the two results is
// non-nil on success; the sentinel means every source came back empty and
// the caller must decide whether to retry with hallucinations allowed.
func (b *NetworkBuilder) BuildNetwork(ctx context.Context, artistName string, allowHallucinations bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	artist, err := b.artists.GetByName(ctx, artistName)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve artist %q: %w", artistName, err)
	}
	return b.buildFor(ctx, artist, allowHallucinations)
}

// BuildNetworkByID is BuildNetwork addressed by canonical id.
func (b *NetworkBuilder) BuildNetworkByID(ctx context.Context, artistID string, allowHallucinations bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	artist, err := b.artists.Get(ctx, artistID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve artist id %q: %w", artistID, err)
	}
	return b.buildFor(ctx, artist, allowHallucinations)
}

// InvalidateNetwork drops the cached document for the named artist.
func (b *NetworkBuilder) InvalidateNetwork(ctx context.Context, artistName string) error {
	artist, err := b.artists.GetByName(ctx, artistName)
	if err != nil {
		return fmt.Errorf("resolve artist %q: %w", artistName, err)
	}
	return b.cache.InvalidateNetwork(ctx, artist.ID)
}

func (b *NetworkBuilder) buildFor(ctx context.Context, artist *types.ArtistIdentity, allowHallucinations bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	if cached := b.checkCache(ctx, artist); cached != nil {
		return cached, nil, nil
	}
	return b.generate(ctx, artist, allowHallucinations)
}

// checkCache returns a trusted cached document, or nil when the build must
// generate. A cached single-node document is a recorded "found nothing",
// not a settled answer, so it never satisfies a read.
func (b *NetworkBuilder) checkCache(ctx context.Context, artist *types.ArtistIdentity) *types.NetworkResult {
	if b.isAmbiguous(ctx, artist.Name) {
		log.Printf("NetworkBuilder: %q is on the ambiguous-names list, bypassing cache", artist.Name)
		return nil
	}

	cached, err := b.cache.GetNetwork(ctx, artist.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("NetworkBuilder: cache read for %q failed: %v", artist.Name, err)
		}
		return nil
	}
	if cached.IsSingleNode() {
		log.Printf("NetworkBuilder: cached network for %q is single-node, regenerating", artist.Name)
		return nil
	}

	cached.Meta.Source = types.SourceCache
	return cached
}

func (b *NetworkBuilder) isAmbiguous(ctx context.Context, name string) bool {
	if b.settings == nil {
		return false
	}
	settings, err := b.settings.GetDisambiguationSettings(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("NetworkBuilder: disambiguation settings unavailable: %v", err)
		}
		return false
	}
	return settings.IsAmbiguous(name)
}

// generate runs the full pipeline for one artist.
func (b *NetworkBuilder) generate(ctx context.Context, artist *types.ArtistIdentity, allowHallucinations bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	runID := NewRunID()
	startedAt := time.Now()
	trace := GenerationTrace{
		RunID:               runID,
		Artist:              artist.Name,
		AllowHallucinations: allowHallucinations,
		StartedAt:           startedAt,
	}

	cbs := b.callbacks()

	log.Printf("NetworkBuilder: generating network for %q (run %s)", artist.Name, runID)
	if cbs.started != nil {
		cbs.started(runID, artist.Name)
	}

	chainResult, err := b.chain.Collaborators(ctx, artist.Name)
	if err != nil {
		return b.abort(artist.Name, runID, &trace, startedAt, cbs, err)
	}
	for _, probe := range chainResult.Probes {
		trace.Steps = append(trace.Steps, stepFromProbe(probe))
	}

	candidates := chainResult.Candidates
	source := chainResult.Source
	hallucinated := false

	if len(candidates) == 0 && allowHallucinations && b.creative != nil {
		candidates, source, hallucinated = b.creativePass(ctx, artist.Name, &trace)
		if err := ctx.Err(); err != nil {
			return b.abort(artist.Name, runID, &trace, startedAt, cbs, err)
		}
	}

	if len(candidates) == 0 {
		exhausted := len(chainResult.Probes) > 0 && chainResult.Failures() == len(chainResult.Probes)
		return b.finishEmpty(ctx, artist, runID, &trace, startedAt, cbs, exhausted)
	}

	if cbs.sourceSelected != nil {
		cbs.sourceSelected(runID, artist.Name, source, len(candidates))
	}

	consolidateStart := time.Now()
	nodes := b.consolidator.Consolidate(artist.Name, b.rootRoles(ctx, artist.Name), candidates)
	links := firstRingLinks(artist.Name, nodes)
	trace.Steps = append(trace.Steps, TraceStep{
		Stage:      StageConsolidate,
		Seen:       len(candidates),
		Kept:       nodes.Len(),
		DurationMS: time.Since(consolidateStart).Milliseconds(),
	})

	expandStart := time.Now()
	ringSize := nodes.Len()
	b.fillTopCollaborations(ctx, nodes)
	links = b.expander.Expand(nodes, links)
	trace.Steps = append(trace.Steps, TraceStep{
		Stage:      StageExpand,
		Seen:       ringSize,
		Kept:       nodes.Len(),
		DurationMS: time.Since(expandStart).Milliseconds(),
	})

	// The root's identity is already settled; enrichment only fills what
	// the record does not carry.
	if root, ok := nodes.Get(artist.Name); ok {
		root.CanonicalID = artist.ID
		root.ImageURL = artist.ImageURL
	}

	if b.enricher != nil {
		enrichStart := time.Now()
		b.enricher.Enrich(ctx, nodes.All())
		trace.Steps = append(trace.Steps, TraceStep{
			Stage:      StageEnrich,
			Seen:       nodes.Len(),
			DurationMS: time.Since(enrichStart).Milliseconds(),
		})
	}

	if err := ctx.Err(); err != nil {
		return b.abort(artist.Name, runID, &trace, startedAt, cbs, err)
	}

	result := &types.NetworkResult{
		Artist: *artist,
		Nodes:  nodes.Nodes(),
		Links:  links,
		Meta: types.NetworkMeta{
			Source:       source,
			RunID:        runID,
			GeneratedAt:  time.Now(),
			Hallucinated: hallucinated,
		},
	}
	b.persist(ctx, artist.ID, result, &trace)

	trace.Outcome = OutcomeCompleted
	trace.Source = source
	trace.NodeCount = len(result.Nodes)
	trace.LinkCount = len(result.Links)
	trace.DurationMS = time.Since(startedAt).Milliseconds()
	b.traces.Record(trace)

	log.Printf("NetworkBuilder: network for %q complete: %d nodes, %d links, source=%s (run %s)",
		artist.Name, len(result.Nodes), len(result.Links), source, runID)
	if cbs.completed != nil {
		cbs.completed(runID, artist.Name, len(result.Nodes), len(result.Links))
	}

	return result, nil, nil
}

// creativePass asks the generative source again with factual constraints
// relaxed. Its candidates face the same fake filter as everything else.
func (b *NetworkBuilder) creativePass(ctx context.Context, artistName string, trace *GenerationTrace) ([]types.CollaboratorCandidate, string, bool) {
	start := time.Now()
	raw, err := b.creative.CreativeCollaborators(ctx, artistName)
	step := TraceStep{
		Stage:   StageCreativePass,
		Adapter: types.SourceGenerative,
		Seen:    len(raw),
	}
	if err != nil {
		step.Err = err.Error()
		step.DurationMS = time.Since(start).Milliseconds()
		trace.Steps = append(trace.Steps, step)
		log.Printf("NetworkBuilder: creative pass failed for %q: %v", artistName, err)
		return nil, types.SourceNone, false
	}

	kept := b.chain.Filter().Filter(raw)
	step.Kept = len(kept)
	step.DurationMS = time.Since(start).Milliseconds()
	trace.Steps = append(trace.Steps, step)

	if len(kept) == 0 {
		return nil, types.SourceNone, false
	}
	log.Printf("NetworkBuilder: creative pass filled %d collaborators for %q", len(kept), artistName)
	return kept, types.SourceGenerative, true
}

// finishEmpty ends a build that produced no candidates. The root-only
// document is persisted either way so repeat lookups hit the single-node
// distrust rule instead of trusting a stale nothing.
func (b *NetworkBuilder) finishEmpty(ctx context.Context, artist *types.ArtistIdentity, runID string, trace *GenerationTrace, startedAt time.Time, cbs callbackSet, exhausted bool) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	rootNode := types.NetworkNode{
		ID:          artist.Name,
		Name:        artist.Name,
		Roles:       []types.Role{types.RoleArtist},
		Weight:      types.WeightPrimary,
		ImageURL:    artist.ImageURL,
		CanonicalID: artist.ID,
	}
	result := &types.NetworkResult{
		Artist: *artist,
		Nodes:  []types.NetworkNode{rootNode},
		Links:  []types.NetworkLink{},
		Meta: types.NetworkMeta{
			Source:      types.SourceNone,
			RunID:       runID,
			GeneratedAt: time.Now(),
		},
	}
	b.persist(ctx, artist.ID, result, trace)

	trace.Source = types.SourceNone
	trace.NodeCount = 1
	trace.DurationMS = time.Since(startedAt).Milliseconds()

	if cbs.completed != nil {
		cbs.completed(runID, artist.Name, 1, 0)
	}

	if exhausted {
		// Every adapter failed outright. The contract is still a network,
		// not an error: serve the degenerate root-only document.
		trace.Outcome = OutcomeExhausted
		b.traces.Record(*trace)
		log.Printf("NetworkBuilder: every source failed for %q, serving root-only network (run %s)", artist.Name, runID)
		return result, nil, nil
	}

	trace.Outcome = OutcomeNoCollaborators
	b.traces.Record(*trace)
	log.Printf("NetworkBuilder: no collaborators found for %q (run %s)", artist.Name, runID)
	return nil, &types.NoCollaboratorsResult{
		NoCollaborators: true,
		ArtistName:      artist.Name,
		CanonicalID:     artist.ID,
		SingleNode:      rootNode,
	}, nil
}

// abort ends a cancelled build. Nothing has been persisted.
func (b *NetworkBuilder) abort(artistName, runID string, trace *GenerationTrace, startedAt time.Time, cbs callbackSet, err error) (*types.NetworkResult, *types.NoCollaboratorsResult, error) {
	trace.Outcome = OutcomeAborted
	trace.DurationMS = time.Since(startedAt).Milliseconds()
	b.traces.Record(*trace)

	if cbs.failed != nil {
		cbs.failed(runID, artistName, err.Error())
	}
	return nil, nil, fmt.Errorf("network build for %q aborted: %w", artistName, err)
}

// fillTopCollaborations fills branch targets on first-ring nodes that came
// back without any, one top-source call per node. Best effort: a failed
// lookup leaves that node unexpanded and the build moves on.
func (b *NetworkBuilder) fillTopCollaborations(ctx context.Context, nodes *NodeMap) {
	if b.tops == nil {
		return
	}
	for _, node := range nodes.All() {
		if node.Weight != types.WeightSecondary || len(node.TopCollaborations) > 0 {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		names, err := b.tops.TopCollaborators(ctx, node.Name, maxBranchesPerNode)
		if err != nil {
			log.Printf("NetworkBuilder: branch target lookup for %q failed: %v", node.Name, err)
			continue
		}
		node.TopCollaborations = names
	}
}

// rootRoles resolves the root node's roles through the role detection
// query, defaulting to artist when none is attached or the query fails.
func (b *NetworkBuilder) rootRoles(ctx context.Context, artistName string) []types.Role {
	if b.roles == nil {
		return []types.Role{types.RoleArtist}
	}
	roles, err := b.roles.ArtistRoles(ctx, artistName)
	if err != nil {
		log.Printf("NetworkBuilder: role detection for %q failed, defaulting to artist: %v", artistName, err)
		return []types.Role{types.RoleArtist}
	}
	if len(roles) == 0 {
		return []types.Role{types.RoleArtist}
	}
	return roles
}

// persist writes the finished document. A write failure is logged and
// swallowed: the caller still gets the fresh result.
func (b *NetworkBuilder) persist(ctx context.Context, artistID string, result *types.NetworkResult, trace *GenerationTrace) {
	start := time.Now()
	step := TraceStep{Stage: StagePersist}
	if err := b.cache.PutNetwork(ctx, artistID, result); err != nil {
		step.Err = err.Error()
		log.Printf("NetworkBuilder: cache write for %q failed, serving fresh result anyway: %v", result.Artist.Name, err)
	}
	step.DurationMS = time.Since(start).Milliseconds()
	trace.Steps = append(trace.Steps, step)
}

// firstRingLinks links the root to every consolidated collaborator.
func firstRingLinks(rootName string, nodes *NodeMap) []types.NetworkLink {
	links := make([]types.NetworkLink, 0, nodes.Len()-1)
	rootKey := types.IdentityKey(rootName)
	for _, node := range nodes.All() {
		if types.IdentityKey(node.Name) == rootKey {
			continue
		}
		links = append(links, types.NetworkLink{Source: rootName, Target: node.Name})
	}
	return links
}
