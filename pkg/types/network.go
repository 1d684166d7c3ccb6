package types

import "time"

// CollaboratorCandidate is one collaborator as reported by a source adapter,
// before consolidation. Several adapters (or several rows from one adapter)
// may name the same person; the consolidator merges them into one node.
type CollaboratorCandidate struct {
	Name              string   `json:"name"`
	Roles             []Role   `json:"roles"`
	TopCollaborations []string `json:"topCollaborations,omitempty"` // This person's own frequent collaborators, used for branch expansion
}

// NetworkNode is a node of the rendered collaboration graph. The node ID is
// the display name: the graph is a per-request document and names have
// already been consolidated, so the name is unique within it.
type NetworkNode struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Roles             []Role     `json:"roles"` // First-seen order preserved
	Weight            NodeWeight `json:"weight"`
	ImageURL          string     `json:"imageUrl,omitempty"`
	CanonicalID       string     `json:"canonicalId,omitempty"`
	TopCollaborations []string   `json:"topCollaborations,omitempty"`
}

// HasRole reports whether the node already carries the given role.
func (n *NetworkNode) HasRole(role Role) bool {
	for _, r := range n.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole appends the role if the node does not carry it yet, preserving
// first-seen order.
func (n *NetworkNode) AddRole(role Role) {
	if !n.HasRole(role) {
		n.Roles = append(n.Roles, role)
	}
}

// NetworkLink is an undirected edge between two nodes. At most one link
// exists per unordered node pair; LinkKey is the canonical pair key.
type NetworkLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// LinkKey returns the canonical key for the unordered pair (a, b). Callers
// use it to enforce one-link-per-pair regardless of direction.
func LinkKey(a, b string) string {
	ka, kb := IdentityKey(a), IdentityKey(b)
	if ka > kb {
		ka, kb = kb, ka
	}
	return ka + "\x00" + kb
}

// NetworkMeta carries provenance for a generated network document.
type NetworkMeta struct {
	Source       string    `json:"source"`                 // Adapter that produced the candidates (or "cache")
	RunID        string    `json:"runId,omitempty"`        // Generation run identifier
	GeneratedAt  time.Time `json:"generatedAt"`            // When the document was generated
	Hallucinated bool      `json:"hallucinated,omitempty"` // True when the creative generative pass filled the network
}

// NetworkResult is the finished collaboration graph for one artist: the
// JSON document served to clients and persisted in the network cache.
type NetworkResult struct {
	Artist ArtistIdentity `json:"artist"`
	Nodes  []NetworkNode  `json:"nodes"`
	Links  []NetworkLink  `json:"links"`
	Meta   NetworkMeta    `json:"meta"`
}

// IsSingleNode reports whether the document degenerated to the root alone.
// Cached single-node networks are distrusted on read: the pipeline
// regenerates rather than serving them as settled answers.
func (r *NetworkResult) IsSingleNode() bool {
	return len(r.Nodes) <= 1
}

// NoCollaboratorsResult is the sentinel offered when every source came back
// empty and the caller did not ask for hallucinated filling. It is a
// decision point, not an error: the caller may retry with
// allowHallucinations set.
type NoCollaboratorsResult struct {
	NoCollaborators bool        `json:"noCollaborators"` // Always true; lets clients discriminate the union
	ArtistName      string      `json:"artistName"`
	CanonicalID     string      `json:"canonicalId,omitempty"`
	SingleNode      NetworkNode `json:"singleNode"`
}

// CollaborationDetail describes one specific edge of the graph: what two
// people actually made together, resolved through the same source fallback
// order as network generation.
type CollaborationDetail struct {
	Artist1      string   `json:"artist1"`
	Artist2      string   `json:"artist2"`
	Songs        []string `json:"songs,omitempty"`
	Albums       []string `json:"albums,omitempty"`
	Relationship string   `json:"relationship,omitempty"` // Free-text summary ("produced three albums together")
	Source       string   `json:"source"`
}

// IsEmpty reports whether the lookup produced no usable content. An empty
// detail from one source sends the caller on to the next one.
func (d *CollaborationDetail) IsEmpty() bool {
	return len(d.Songs) == 0 && len(d.Albums) == 0 && d.Relationship == ""
}
