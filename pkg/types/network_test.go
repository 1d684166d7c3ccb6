package types_test

import (
	"encoding/json"
	"testing"

	"github.com/crateful/linernotes/pkg/types"
)

// TestAddRolePreservesFirstSeenOrder verifies that roles accumulate in the
// order they were first reported and never duplicate.
func TestAddRolePreservesFirstSeenOrder(t *testing.T) {
	n := types.NetworkNode{ID: "Dana", Name: "Dana"}

	n.AddRole(types.RoleProducer)
	n.AddRole(types.RoleArtist)
	n.AddRole(types.RoleProducer)
	n.AddRole(types.RoleSongwriter)
	n.AddRole(types.RoleArtist)

	want := []types.Role{types.RoleProducer, types.RoleArtist, types.RoleSongwriter}
	if len(n.Roles) != len(want) {
		t.Fatalf("expected %d roles, got %d: %v", len(want), len(n.Roles), n.Roles)
	}
	for i, r := range want {
		if n.Roles[i] != r {
			t.Errorf("expected role %d to be %q, got %q", i, r, n.Roles[i])
		}
	}
}

// TestHasRole verifies role membership checks.
func TestHasRole(t *testing.T) {
	n := types.NetworkNode{Roles: []types.Role{types.RoleArtist}}

	if !n.HasRole(types.RoleArtist) {
		t.Error("expected HasRole(artist) to be true")
	}
	if n.HasRole(types.RoleProducer) {
		t.Error("expected HasRole(producer) to be false")
	}
}

// TestLinkKeyIsOrderAndCaseInsensitive verifies that the pair key is the
// same regardless of direction, whitespace, and letter case.
func TestLinkKeyIsOrderAndCaseInsensitive(t *testing.T) {
	tests := []struct {
		name string
		a1   string
		b1   string
		a2   string
		b2   string
		same bool
	}{
		{"reversed_pair", "Ada", "Bo", "Bo", "Ada", true},
		{"case_insensitive", "ada", "BO", "Ada", "Bo", true},
		{"whitespace_trimmed", " Ada ", "Bo", "Ada", "Bo", true},
		{"distinct_pairs", "Ada", "Bo", "Ada", "Cy", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k1 := types.LinkKey(tt.a1, tt.b1)
			k2 := types.LinkKey(tt.a2, tt.b2)
			if (k1 == k2) != tt.same {
				t.Errorf("LinkKey(%q,%q)=%q vs LinkKey(%q,%q)=%q, same=%v, want %v",
					tt.a1, tt.b1, k1, tt.a2, tt.b2, k2, k1 == k2, tt.same)
			}
		})
	}
}

// TestIdentityKey verifies name normalization for identity comparisons.
func TestIdentityKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nile Rodgers", "nile rodgers"},
		{"  Nile Rodgers  ", "nile rodgers"},
		{"NILE RODGERS", "nile rodgers"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := types.IdentityKey(tt.in); got != tt.want {
			t.Errorf("IdentityKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestIsSingleNode verifies the degenerate-network check used by the cache
// distrust rule.
func TestIsSingleNode(t *testing.T) {
	r := types.NetworkResult{Nodes: []types.NetworkNode{{ID: "Ada"}}}
	if !r.IsSingleNode() {
		t.Error("expected one-node result to be single-node")
	}

	r.Nodes = append(r.Nodes, types.NetworkNode{ID: "Bo"})
	if r.IsSingleNode() {
		t.Error("expected two-node result to not be single-node")
	}
}

// TestIsValidRole verifies the role whitelist.
func TestIsValidRole(t *testing.T) {
	for _, r := range types.ValidRoles {
		if !types.IsValidRole(r) {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if types.IsValidRole("impresario") {
		t.Error("expected unknown role to be invalid")
	}
}

// TestNetworkResultJSONShape verifies the client-facing field names of the
// graph document.
func TestNetworkResultJSONShape(t *testing.T) {
	r := types.NetworkResult{
		Artist: types.ArtistIdentity{ID: "art_1", Name: "Ada"},
		Nodes: []types.NetworkNode{
			{ID: "Ada", Name: "Ada", Roles: []types.Role{types.RoleArtist}, Weight: types.WeightPrimary},
		},
		Links: []types.NetworkLink{{Source: "Ada", Target: "Bo"}},
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, field := range []string{"artist", "nodes", "links", "meta"} {
		if _, ok := doc[field]; !ok {
			t.Errorf("expected top-level field %q in document", field)
		}
	}

	nodes := doc["nodes"].([]interface{})
	node := nodes[0].(map[string]interface{})
	if node["weight"] != "PRIMARY" {
		t.Errorf("expected weight PRIMARY, got %v", node["weight"])
	}
}

// TestDisambiguationSettingsLookups verifies override and ambiguous-name
// matching goes through identity-key normalization.
func TestDisambiguationSettingsLookups(t *testing.T) {
	s := types.DisambiguationSettings{
		Overrides: []types.DisambiguationOverride{
			{Name: "John Williams", CanonicalID: "art_jw_composer"},
		},
		AmbiguousNames: []string{"Bill Evans"},
	}

	id, ok := s.OverrideFor("john williams")
	if !ok || id != "art_jw_composer" {
		t.Errorf("expected override art_jw_composer, got %q (ok=%v)", id, ok)
	}
	if _, ok := s.OverrideFor("John Cage"); ok {
		t.Error("expected no override for John Cage")
	}

	if !s.IsAmbiguous("  bill evans ") {
		t.Error("expected Bill Evans to be ambiguous")
	}
	if s.IsAmbiguous("Ada") {
		t.Error("expected Ada to not be ambiguous")
	}
}

// TestUnmarshalSettingsHelpers verifies the stored-JSON helpers tolerate
// empty strings.
func TestUnmarshalSettingsHelpers(t *testing.T) {
	overrides, err := types.UnmarshalOverrides("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overrides) != 0 {
		t.Errorf("expected empty overrides, got %v", overrides)
	}

	names, err := types.UnmarshalAmbiguousNames(`["Bill Evans"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 1 || names[0] != "Bill Evans" {
		t.Errorf("expected [Bill Evans], got %v", names)
	}

	if _, err := types.UnmarshalOverrides("{not json"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
