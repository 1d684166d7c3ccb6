// Package storage provides composable storage interfaces for the linernotes system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. The identity store, the
// network cache and the settings store live in one database, but consumers
// depend only on the slice they use.
package storage

import (
	"context"

	"github.com/crateful/linernotes/pkg/types"
)

// ArtistStore is the identity store: CRUD and lookup for known artist
// records. Network generation refuses to start for artists absent from it.
type ArtistStore interface {
	// Store creates or updates an artist record (upsert semantics).
	// If a record with the same ID exists, it is updated; otherwise, a new
	// one is created.
	Store(ctx context.Context, artist *types.ArtistIdentity) error

	// Get retrieves an artist by canonical id.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*types.ArtistIdentity, error)

	// GetByName retrieves an artist by display name, matched through
	// identity-key normalization (trimmed, lower-cased). When several
	// records collapse to the same key the oldest record wins.
	// Returns ErrNotFound if no record matches.
	GetByName(ctx context.Context, name string) (*types.ArtistIdentity, error)

	// List retrieves artist records with pagination.
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[types.ArtistIdentity], error)

	// Delete removes an artist record and its cached network.
	// Returns ErrNotFound if the record doesn't exist.
	Delete(ctx context.Context, id string) error

	// Count returns the number of artist records.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// NetworkCache persists finished network documents keyed by canonical artist
// id. Writes are whole-document overwrites; partial results are never stored.
type NetworkCache interface {
	// PutNetwork stores the finished document for the artist, replacing any
	// previous one (last-writer-wins).
	PutNetwork(ctx context.Context, artistID string, result *types.NetworkResult) error

	// GetNetwork retrieves the cached document for the artist.
	// Returns ErrNotFound on a cache miss.
	GetNetwork(ctx context.Context, artistID string) (*types.NetworkResult, error)

	// InvalidateNetwork removes the cached document for the artist.
	// Invalidating a missing entry is not an error.
	InvalidateNetwork(ctx context.Context, artistID string) error

	// NetworkStats reports cache contents for the stats endpoint.
	NetworkStats(ctx context.Context) (*NetworkCacheStats, error)
}

// SearchProvider provides full-text artist search for disambiguation.
type SearchProvider interface {
	// SearchArtists performs full-text search across artist names, bios and
	// disambiguation notes. With opts.FuzzyFallback set, a zero-hit query is
	// retried with relaxed OR semantics.
	SearchArtists(ctx context.Context, opts SearchOptions) (*PaginatedResult[types.ArtistIdentity], error)

	// VectorSearch performs semantic search over artist bio embeddings.
	// Implementations without embedding support return ErrInvalidInput.
	VectorSearch(ctx context.Context, query []float32, opts SearchOptions) (*PaginatedResult[types.ArtistIdentity], error)
}

// EmbeddingProvider manages bio embeddings with dimension tracking.
type EmbeddingProvider interface {
	// StoreEmbedding stores a bio embedding for an artist.
	StoreEmbedding(ctx context.Context, artistID string, embedding []float32, dimension int, model string) error

	// GetEmbedding retrieves the embedding for an artist.
	// Returns ErrNotFound if no embedding is stored.
	GetEmbedding(ctx context.Context, artistID string) ([]float32, error)

	// DeleteEmbedding removes an embedding.
	DeleteEmbedding(ctx context.Context, artistID string) error
}

// SettingsStore persists the runtime-editable disambiguation settings.
type SettingsStore interface {
	// GetDisambiguationSettings returns the stored settings.
	// Returns ErrNotFound when none have been saved yet.
	GetDisambiguationSettings(ctx context.Context) (*types.DisambiguationSettings, error)

	// SaveDisambiguationSettings stores the settings (upsert semantics).
	SaveDisambiguationSettings(ctx context.Context, settings *types.DisambiguationSettings) error
}

// Store is the full storage surface a backend provides. Both the sqlite and
// postgres implementations satisfy it; the server wires the pieces to their
// consumers separately.
type Store interface {
	ArtistStore
	NetworkCache
	SearchProvider
	SettingsStore
}

// NetworkCacheStats summarizes cached network documents.
type NetworkCacheStats struct {
	// Total is the number of cached documents.
	Total int

	// BySource counts documents by the adapter that generated them.
	BySource map[string]int

	// SingleNode counts degenerate one-node documents, which the read path
	// distrusts.
	SingleNode int
}
