package types

import (
	"encoding/json"
	"time"
)

// DisambiguationOverride pins an artist name to a specific canonical id for
// the musicgraph adapter, for names the automatic resolution gets wrong
// (several real artists sharing one name).
type DisambiguationOverride struct {
	// Artist name the override applies to (matched via IdentityKey)
	Name string `json:"name"`

	// Canonical id the name should resolve to
	CanonicalID string `json:"canonical_id"`

	// Optional operator note ("the jazz guitarist, not the DJ")
	Note string `json:"note,omitempty"`
}

// DisambiguationSettings represents the runtime-editable resolution settings
// stored in the settings table: per-name overrides plus the list of names
// too ambiguous to cache.
type DisambiguationSettings struct {
	ID             string                   `json:"id"`
	Overrides      []DisambiguationOverride `json:"overrides,omitempty"`
	AmbiguousNames []string                 `json:"ambiguous_names,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// OverrideFor returns the canonical id pinned for the given name, if any.
func (s *DisambiguationSettings) OverrideFor(name string) (string, bool) {
	key := IdentityKey(name)
	for _, o := range s.Overrides {
		if IdentityKey(o.Name) == key {
			return o.CanonicalID, true
		}
	}
	return "", false
}

// IsAmbiguous reports whether the name is on the never-cache list.
func (s *DisambiguationSettings) IsAmbiguous(name string) bool {
	key := IdentityKey(name)
	for _, n := range s.AmbiguousNames {
		if IdentityKey(n) == key {
			return true
		}
	}
	return false
}

// UpdateDisambiguationsRequest represents the request body for
// PUT /api/settings/disambiguations
type UpdateDisambiguationsRequest struct {
	Overrides      []DisambiguationOverride `json:"overrides"`
	AmbiguousNames []string                 `json:"ambiguous_names"`
}

// SavedDisambiguationSettings represents what is actually stored in the
// settings table (JSON strings).
type SavedDisambiguationSettings struct {
	ID             string
	Overrides      string // JSON string
	AmbiguousNames string // JSON string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UnmarshalOverrides unmarshals the JSON string into a slice of DisambiguationOverride
func UnmarshalOverrides(jsonStr string) ([]DisambiguationOverride, error) {
	if jsonStr == "" {
		return []DisambiguationOverride{}, nil
	}
	var overrides []DisambiguationOverride
	if err := json.Unmarshal([]byte(jsonStr), &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// UnmarshalAmbiguousNames unmarshals the JSON string into a slice of names
func UnmarshalAmbiguousNames(jsonStr string) ([]string, error) {
	if jsonStr == "" {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(jsonStr), &names); err != nil {
		return nil, err
	}
	return names, nil
}
