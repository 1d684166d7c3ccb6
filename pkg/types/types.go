// Package types defines the core data structures for the linernotes
// collaboration network system. These types represent artist identities,
// collaborator candidates, network graph documents, and generation metadata.
package types

import "strings"

// Role classifies how a collaborator contributed to a body of work.
type Role string

// Collaborator role constants
const (
	// RoleArtist indicates a performing or featured artist
	RoleArtist Role = "artist"

	// RoleProducer indicates production, mixing, mastering or engineering credit
	RoleProducer Role = "producer"

	// RoleSongwriter indicates composition, lyric or writing credit
	RoleSongwriter Role = "songwriter"
)

// ValidRoles is a slice of all valid roles for validation
var ValidRoles = []Role{
	RoleArtist,
	RoleProducer,
	RoleSongwriter,
}

// IsValidRole checks if the given role is one of the known role constants
func IsValidRole(role Role) bool {
	for _, validRole := range ValidRoles {
		if validRole == role {
			return true
		}
	}
	return false
}

// NodeWeight classifies a node's distance from the network root.
type NodeWeight string

// Node weight constants
const (
	// WeightPrimary is the root artist the network was generated for
	WeightPrimary NodeWeight = "PRIMARY"

	// WeightSecondary is a direct collaborator of the root (first ring)
	WeightSecondary NodeWeight = "SECONDARY"

	// WeightBranch is a collaborator-of-a-collaborator (second ring)
	WeightBranch NodeWeight = "BRANCH"
)

// Source name constants identify which adapter (or the cache) produced a
// network document. They appear in NetworkMeta.Source and in generation
// events.
const (
	SourceGenerative   = "generative"
	SourceMusicgraph   = "musicgraph"
	SourceEncyclopedia = "encyclopedia"
	SourceCurated      = "curated"
	SourceCache        = "cache"
	SourceNone         = "none"
)

// IdentityKey normalizes an artist name for identity comparisons: trimmed
// and lower-cased. Two spellings that collapse to the same key are treated
// as the same person everywhere in the pipeline. Distinct real-world artists
// sharing an exact name collapse too; disambiguation overrides exist to
// patch the cases that matter.
func IdentityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
