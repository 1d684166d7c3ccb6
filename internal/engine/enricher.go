package engine

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/crateful/linernotes/internal/metadata"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// ImageSource provides portrait URLs for artist names.
type ImageSource interface {
	ArtistImageURL(ctx context.Context, artistName string) (string, error)
}

// IdentitySource maps artist names to canonical profile ids.
type IdentitySource interface {
	ResolveID(ctx context.Context, name string) (string, error)
}

// MetadataEnricher decorates finished nodes with portrait URLs and
// canonical ids. Strictly best-effort: a lookup failure leaves the field
// empty and the build carries on. Nodes are enriched concurrently, each in
// its own goroutine, so one slow provider call cannot serialize the ring.
type MetadataEnricher struct {
	images   ImageSource
	identity IdentitySource
	workers  int
}

// NewMetadataEnricher creates an enricher. Either source may be nil, which
// skips that lookup for every node.
func NewMetadataEnricher(images ImageSource, identity IdentitySource, workers int) *MetadataEnricher {
	if workers < 1 {
		workers = 1
	}
	return &MetadataEnricher{
		images:   images,
		identity: identity,
		workers:  workers,
	}
}

// Enrich fills ImageURL and CanonicalID on every node that does not carry
// them yet. At most `workers` lookups run at once. Failures are isolated
// per node and never returned: enrichment cannot fail a build.
func (e *MetadataEnricher) Enrich(ctx context.Context, nodes []*types.NetworkNode) {
	if e.images == nil && e.identity == nil {
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)

	for _, node := range nodes {
		if node.ImageURL != "" && node.CanonicalID != "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(node *types.NetworkNode) {
			defer wg.Done()
			defer func() { <-sem }()
			e.enrichNode(ctx, node)
		}(node)
	}

	wg.Wait()
}

// enrichNode performs both lookups for one node. Each goroutine owns its
// node outright, so the writes need no locking.
func (e *MetadataEnricher) enrichNode(ctx context.Context, node *types.NetworkNode) {
	if e.images != nil && node.ImageURL == "" {
		imageURL, err := e.images.ArtistImageURL(ctx, node.Name)
		switch {
		case err == nil:
			node.ImageURL = imageURL
		case errors.Is(err, metadata.ErrNoImage):
			// Expected for most second-ring names.
		default:
			log.Printf("MetadataEnricher: image lookup for %q: %v", node.Name, err)
		}
	}

	if e.identity != nil && node.CanonicalID == "" {
		id, err := e.identity.ResolveID(ctx, node.Name)
		switch {
		case err == nil:
			node.CanonicalID = id
		case errors.Is(err, storage.ErrNotFound):
			// Most collaborators have no record of their own.
		default:
			log.Printf("MetadataEnricher: identity lookup for %q: %v", node.Name, err)
		}
	}
}
