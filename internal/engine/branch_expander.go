package engine

import (
	"github.com/crateful/linernotes/internal/sources"
	"github.com/crateful/linernotes/pkg/types"
)

// maxBranchesPerNode caps how many second-ring links one first-ring node
// may contribute. Past three the graph stops reading as "this artist's
// orbit" and starts reading as noise.
const maxBranchesPerNode = 3

// BranchExpander grows the second ring: for each direct collaborator it
// links in a few of that person's own frequent collaborators. Expansion
// never recurses further, never links back to the root and never adds a
// second link for a pair that already has one.
type BranchExpander struct {
	filter *sources.FakeEntryFilter
}

// NewBranchExpander creates an expander. A nil filter disables fake
// screening of branch targets.
func NewBranchExpander(filter *sources.FakeEntryFilter) *BranchExpander {
	if filter == nil {
		filter = sources.NewFakeEntryFilter()
	}
	return &BranchExpander{filter: filter}
}

// Expand walks the first ring in insertion order and adds branch nodes and
// links. It mutates nodes in place and returns the grown link slice. The
// cap counts links actually added: targets skipped as fake, root, self or
// already linked do not use up a slot.
func (e *BranchExpander) Expand(nodes *NodeMap, links []types.NetworkLink) []types.NetworkLink {
	linked := make(map[string]struct{}, len(links))
	for _, link := range links {
		linked[types.LinkKey(link.Source, link.Target)] = struct{}{}
	}

	// Snapshot the ring before any branch node lands in the map, so new
	// nodes are never themselves expanded.
	var firstRing []*types.NetworkNode
	for _, node := range nodes.All() {
		if node.Weight == types.WeightSecondary {
			firstRing = append(firstRing, node)
		}
	}

	for _, node := range firstRing {
		added := 0
		for _, branchName := range node.TopCollaborations {
			if added >= maxBranchesPerNode {
				break
			}
			if e.filter.IsFake(branchName) {
				continue
			}

			target, exists := nodes.Get(branchName)
			if exists {
				if target.Weight == types.WeightPrimary {
					// Re-linking the root would cycle ring 2 back to ring 0.
					continue
				}
				if target == node {
					continue
				}
			}

			pairKey := types.LinkKey(node.Name, branchName)
			if _, dup := linked[pairKey]; dup {
				continue
			}

			if !exists {
				target = &types.NetworkNode{
					ID:     branchName,
					Name:   branchName,
					Roles:  []types.Role{types.RoleArtist},
					Weight: types.WeightBranch,
				}
				nodes.add(target)
			} else {
				// Branch targets are collaborators in the performing sense
				// whatever other roles they carry.
				target.AddRole(types.RoleArtist)
			}

			links = append(links, types.NetworkLink{Source: node.Name, Target: target.Name})
			linked[pairKey] = struct{}{}
			added++
		}
	}

	return links
}
