package engine

import (
	"github.com/crateful/linernotes/pkg/types"
)

// NodeMap is an insertion-ordered collection of network nodes keyed by
// identity key. It belongs to exactly one build: the consolidator returns a
// fresh map per request and nothing outside that request ever sees it.
type NodeMap struct {
	byKey map[string]*types.NetworkNode
	order []string
}

// newNodeMap returns an empty map.
func newNodeMap() *NodeMap {
	return &NodeMap{byKey: make(map[string]*types.NetworkNode)}
}

// Get returns the node the name collapses to, if any.
func (m *NodeMap) Get(name string) (*types.NetworkNode, bool) {
	node, ok := m.byKey[types.IdentityKey(name)]
	return node, ok
}

// add registers a node under its identity key. The caller has already
// checked the key is absent.
func (m *NodeMap) add(node *types.NetworkNode) {
	key := types.IdentityKey(node.Name)
	m.byKey[key] = node
	m.order = append(m.order, key)
}

// Len returns the number of nodes.
func (m *NodeMap) Len() int {
	return len(m.byKey)
}

// All returns the nodes in insertion order. The pointers are live: the
// enricher mutates nodes through them.
func (m *NodeMap) All() []*types.NetworkNode {
	nodes := make([]*types.NetworkNode, 0, len(m.order))
	for _, key := range m.order {
		nodes = append(nodes, m.byKey[key])
	}
	return nodes
}

// Nodes copies the nodes out in insertion order for the final document.
func (m *NodeMap) Nodes() []types.NetworkNode {
	nodes := make([]types.NetworkNode, 0, len(m.order))
	for _, key := range m.order {
		nodes = append(nodes, *m.byKey[key])
	}
	return nodes
}

// NodeConsolidator collapses raw collaborator candidates into graph nodes.
// The same person reported by two adapters, or by one adapter under two
// roles, must come out as exactly one node carrying the union of roles.
// Everything downstream leans on that property.
type NodeConsolidator struct{}

// NewNodeConsolidator creates a consolidator.
func NewNodeConsolidator() *NodeConsolidator {
	return &NodeConsolidator{}
}

// Consolidate seeds the map with the root node and folds every candidate
// in. Candidates that collapse to an existing node (including the root)
// merge their roles and top collaborations into it; new names become
// second-ring nodes. Name spelling is first-seen: later case variants do
// not rewrite the display name.
func (c *NodeConsolidator) Consolidate(rootName string, rootRoles []types.Role, candidates []types.CollaboratorCandidate) *NodeMap {
	nodes := newNodeMap()

	if len(rootRoles) == 0 {
		rootRoles = []types.Role{types.RoleArtist}
	}
	nodes.add(&types.NetworkNode{
		ID:     rootName,
		Name:   rootName,
		Roles:  append([]types.Role(nil), rootRoles...),
		Weight: types.WeightPrimary,
	})

	for _, candidate := range candidates {
		roles := candidate.Roles
		if len(roles) == 0 {
			roles = []types.Role{types.RoleArtist}
		}

		if existing, ok := nodes.Get(candidate.Name); ok {
			for _, role := range roles {
				existing.AddRole(role)
			}
			existing.TopCollaborations = mergeNames(existing.TopCollaborations, candidate.TopCollaborations)
			continue
		}

		nodes.add(&types.NetworkNode{
			ID:                candidate.Name,
			Name:              candidate.Name,
			Roles:             append([]types.Role(nil), roles...),
			Weight:            types.WeightSecondary,
			TopCollaborations: append([]string(nil), candidate.TopCollaborations...),
		})
	}

	return nodes
}

// mergeNames unions two name lists, preserving first-seen order and
// identity-key uniqueness.
func mergeNames(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		seen[types.IdentityKey(name)] = struct{}{}
	}
	for _, name := range incoming {
		key := types.IdentityKey(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, name)
	}
	return existing
}
