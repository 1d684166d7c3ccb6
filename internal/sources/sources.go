// Package sources implements the collaborator source adapters and the
// strict fallback chain that consults them. Each adapter normalizes one
// external provider (language model, music metadata service, encyclopedia,
// curated table) into CollaboratorCandidate values; the chain tries them in
// priority order and stops at the first adapter with usable results.
package sources

import (
	"context"
	"errors"
	"time"

	"github.com/crateful/linernotes/pkg/types"
)

var (
	// ErrAdapterUnavailable marks an adapter that cannot be consulted at
	// all: unconfigured, unreachable, or with its circuit breaker open.
	// The chain recovers by moving to the next adapter.
	ErrAdapterUnavailable = errors.New("source adapter unavailable")

	// ErrMalformedOutput marks a response that arrived but could not be
	// parsed. Recovered the same way as ErrAdapterUnavailable; kept
	// distinct so traces show which failure mode an adapter is in.
	ErrMalformedOutput = errors.New("malformed adapter output")
)

// SourceAdapter produces collaborator candidates for one artist. Adapters
// may return an empty slice or an error when they have nothing; callers
// must treat both as "try the next adapter".
type SourceAdapter interface {
	// Name identifies the adapter in result metadata and traces. It is
	// one of the types.Source* constants.
	Name() string

	// Collaborators returns the artist's collaborators, unconsolidated
	// and unfiltered.
	Collaborators(ctx context.Context, artistName string) ([]types.CollaboratorCandidate, error)
}

// DetailSource is implemented by adapters that can describe one specific
// collaboration: shared songs, albums, and the working relationship.
type DetailSource interface {
	CollaborationDetail(ctx context.Context, artist1, artist2 string) (*types.CollaborationDetail, error)
}

// RoleDetector is implemented by adapters that can report which roles an
// artist themselves holds, independent of any collaborator lookup.
type RoleDetector interface {
	ArtistRoles(ctx context.Context, artistName string) ([]types.Role, error)
}

// TopSource is implemented by adapters that can name an artist's most
// frequent collaborators, used to pick branch targets when a node carries
// no topCollaborations of its own.
type TopSource interface {
	TopCollaborators(ctx context.Context, artistName string, limit int) ([]string, error)
}

// Probe records one adapter consultation within a chain run.
type Probe struct {
	Adapter  string        `json:"adapter"`
	Seen     int           `json:"seen"` // candidates the adapter returned
	Kept     int           `json:"kept"` // candidates surviving the fake filter
	Duration time.Duration `json:"duration"`
	Err      string        `json:"err,omitempty"`
}
