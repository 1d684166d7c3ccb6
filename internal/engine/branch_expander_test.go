package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful/linernotes/pkg/types"
)

// buildRing consolidates the candidates and links the root to the ring,
// the state a network is in when expansion starts.
func buildRing(rootName string, candidates []types.CollaboratorCandidate) (*NodeMap, []types.NetworkLink) {
	nodes := NewNodeConsolidator().Consolidate(rootName, nil, candidates)
	return nodes, firstRingLinks(rootName, nodes)
}

func linkSet(links []types.NetworkLink) map[string]bool {
	set := make(map[string]bool, len(links))
	for _, link := range links {
		set[types.LinkKey(link.Source, link.Target)] = true
	}
	return set
}

func TestExpandWorkedExample(t *testing.T) {
	// Root Ada, ring {Bob}, Bob's own top collaborators [Cyd, Ada]: the Cyd
	// branch is added, the Ada entry is suppressed as a root link.
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleProducer}, TopCollaborations: []string{"Cyd", "Ada"}},
		{Name: "Bob", Roles: []types.Role{types.RoleSongwriter}},
	})

	links = NewBranchExpander(nil).Expand(nodes, links)

	require.Equal(t, 3, nodes.Len())
	bob, _ := nodes.Get("Bob")
	assert.Equal(t, []types.Role{types.RoleProducer, types.RoleSongwriter}, bob.Roles)

	cyd, ok := nodes.Get("Cyd")
	require.True(t, ok)
	assert.Equal(t, types.WeightBranch, cyd.Weight)
	assert.Equal(t, []types.Role{types.RoleArtist}, cyd.Roles)

	set := linkSet(links)
	assert.Len(t, links, 2)
	assert.True(t, set[types.LinkKey("Ada", "Bob")])
	assert.True(t, set[types.LinkKey("Bob", "Cyd")])
	assert.False(t, set[types.LinkKey("Ada", "Cyd")])
}

func TestExpandCapsBranchesPerNode(t *testing.T) {
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleArtist},
			TopCollaborations: []string{"Beck", "Bono", "Cher", "Dido", "Enya"}},
	})

	links = NewBranchExpander(nil).Expand(nodes, links)

	// Root + Bob + three branches.
	assert.Equal(t, 5, nodes.Len())
	assert.Len(t, links, 4)
	_, hasDido := nodes.Get("Dido")
	assert.False(t, hasDido)
}

func TestExpandSkippedTargetsDoNotConsumeSlots(t *testing.T) {
	// The root mention and the fake entry are skipped outright; all three
	// real names still make it in.
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleArtist},
			TopCollaborations: []string{"Ada", "Unknown Artist", "Beck", "Bono", "Cher"}},
	})

	links = NewBranchExpander(nil).Expand(nodes, links)

	assert.Equal(t, 5, nodes.Len())
	for _, name := range []string{"Beck", "Bono", "Cher"} {
		_, ok := nodes.Get(name)
		assert.True(t, ok, "expected branch node %s", name)
	}
	_, hasFake := nodes.Get("Unknown Artist")
	assert.False(t, hasFake)
}

func TestExpandNeverRelinksRoot(t *testing.T) {
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleArtist}, TopCollaborations: []string{"Ada", "ADA"}},
	})

	links = NewBranchExpander(nil).Expand(nodes, links)

	assert.Len(t, links, 1)
	assert.Equal(t, 2, nodes.Len())
}

func TestExpandExistingRingNodeGetsLinkNotDuplicate(t *testing.T) {
	// Bob and Cyd are both in the first ring; Bob names Cyd. One Bob-Cyd link is
	// added and no second Cyd node appears.
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleArtist}, TopCollaborations: []string{"Cyd"}},
		{Name: "Cyd", Roles: []types.Role{types.RoleProducer}, TopCollaborations: []string{"Bob"}},
	})

	links = NewBranchExpander(nil).Expand(nodes, links)

	assert.Equal(t, 3, nodes.Len())
	assert.Len(t, links, 3)

	cyd, _ := nodes.Get("Cyd")
	assert.Equal(t, types.WeightSecondary, cyd.Weight)
	// Branch targets are performers too.
	assert.Equal(t, []types.Role{types.RoleProducer, types.RoleArtist}, cyd.Roles)

	// Cyd naming Bob right back must not add a second Bob-Cyd link.
	count := 0
	for _, link := range links {
		if types.LinkKey(link.Source, link.Target) == types.LinkKey("Bob", "Cyd") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExpandSharedBranchTargetLinksBoth(t *testing.T) {
	// Two ring nodes naming the same branch target produce one node and
	// two links, one per ring node.
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleArtist}, TopCollaborations: []string{"Shared"}},
		{Name: "Cyd", Roles: []types.Role{types.RoleArtist}, TopCollaborations: []string{"Shared"}},
	})

	links = NewBranchExpander(nil).Expand(nodes, links)

	require.Equal(t, 4, nodes.Len())
	set := linkSet(links)
	assert.True(t, set[types.LinkKey("Bob", "Shared")])
	assert.True(t, set[types.LinkKey("Cyd", "Shared")])
	assert.Len(t, links, 4)
}

func TestExpandDoesNotRecurseIntoBranches(t *testing.T) {
	// A branch node carrying its own top collaborations stays a leaf.
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleArtist}, TopCollaborations: []string{"Cyd"}},
	})
	expander := NewBranchExpander(nil)

	links = expander.Expand(nodes, links)
	cyd, _ := nodes.Get("Cyd")
	cyd.TopCollaborations = []string{"Deep"}

	links = expander.Expand(nodes, links)

	_, hasDeep := nodes.Get("Deep")
	assert.False(t, hasDeep)
	assert.Len(t, links, 2)
}

func TestExpandSelfMentionSkipped(t *testing.T) {
	nodes, links := buildRing("Ada", []types.CollaboratorCandidate{
		{Name: "Bob", Roles: []types.Role{types.RoleArtist}, TopCollaborations: []string{"Bob", "Cyd"}},
	})

	links = NewBranchExpander(nil).Expand(nodes, links)

	assert.Equal(t, 3, nodes.Len())
	assert.Len(t, links, 2)
	for _, link := range links {
		assert.NotEqual(t, types.IdentityKey(link.Source), types.IdentityKey(link.Target))
	}
}

func TestExpandEmptyRing(t *testing.T) {
	nodes, links := buildRing("Ada", nil)

	links = NewBranchExpander(nil).Expand(nodes, links)

	assert.Equal(t, 1, nodes.Len())
	assert.Empty(t, links)
}
