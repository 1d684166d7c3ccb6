// Package services holds the thin domain services between the HTTP handlers
// and the storage layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// NameInvalidator drops per-name cached lookups when resolution rules
// change. The metadata identity resolver implements it.
type NameInvalidator interface {
	Invalidate(name string)
}

// SettingsService manages the runtime-editable disambiguation settings:
// per-name canonical-id overrides for the musicgraph adapter and the
// ambiguous-names list the cache read path consults.
type SettingsService struct {
	settings storage.SettingsStore
	cache    storage.NetworkCache
	resolver NameInvalidator
}

// NewSettingsService creates the service over the settings store and the
// network cache it invalidates when overrides change.
func NewSettingsService(settings storage.SettingsStore, cache storage.NetworkCache) *SettingsService {
	return &SettingsService{settings: settings, cache: cache}
}

// SetNameInvalidator attaches the resolver-cache hook, called for every
// name whose override was added, removed or repointed.
func (s *SettingsService) SetNameInvalidator(resolver NameInvalidator) {
	s.resolver = resolver
}

// Disambiguations returns the stored settings. Before the first save it
// returns empty settings rather than an error, so GET always has a body.
func (s *SettingsService) Disambiguations(ctx context.Context) (*types.DisambiguationSettings, error) {
	settings, err := s.settings.GetDisambiguationSettings(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &types.DisambiguationSettings{
				Overrides:      []types.DisambiguationOverride{},
				AmbiguousNames: []string{},
			}, nil
		}
		return nil, fmt.Errorf("load disambiguation settings: %w", err)
	}
	return settings, nil
}

// UpdateDisambiguations replaces the stored settings and invalidates what
// the change touched: the cached network behind every override that was
// added, removed or repointed, plus the resolver entry for those names. A
// repointed name must not keep serving the network generated under its old
// identity.
func (s *SettingsService) UpdateDisambiguations(ctx context.Context, req *types.UpdateDisambiguationsRequest) (*types.DisambiguationSettings, error) {
	current, err := s.Disambiguations(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated := &types.DisambiguationSettings{
		ID:             current.ID,
		Overrides:      req.Overrides,
		AmbiguousNames: req.AmbiguousNames,
		CreatedAt:      current.CreatedAt,
		UpdatedAt:      now,
	}
	if updated.ID == "" {
		updated.ID = uuid.NewString()
		updated.CreatedAt = now
	}

	if err := s.settings.SaveDisambiguationSettings(ctx, updated); err != nil {
		return nil, fmt.Errorf("save disambiguation settings: %w", err)
	}

	s.invalidateChangedOverrides(ctx, current.Overrides, updated.Overrides)
	return updated, nil
}

// invalidateChangedOverrides compares the override sets by identity key and
// drops cached state for every name whose pinned id changed in either
// direction. Changes to the ambiguous-names list need no invalidation: that
// list is consulted on every read.
func (s *SettingsService) invalidateChangedOverrides(ctx context.Context, before, after []types.DisambiguationOverride) {
	prev := overridesByKey(before)
	next := overridesByKey(after)

	for key, override := range next {
		old, existed := prev[key]
		if existed && old.CanonicalID == override.CanonicalID {
			continue
		}
		s.dropCachedState(ctx, override.Name, override.CanonicalID)
		if existed {
			s.dropCachedState(ctx, old.Name, old.CanonicalID)
		}
	}
	for key, old := range prev {
		if _, kept := next[key]; !kept {
			s.dropCachedState(ctx, old.Name, old.CanonicalID)
		}
	}
}

// dropCachedState removes the cached network generated under the given id
// and the resolver entry for the name. Failures are logged, not returned:
// the settings save already succeeded.
func (s *SettingsService) dropCachedState(ctx context.Context, name, canonicalID string) {
	if canonicalID != "" {
		if err := s.cache.InvalidateNetwork(ctx, canonicalID); err != nil {
			log.Printf("SettingsService: invalidating network for %q (%s): %v", name, canonicalID, err)
		}
	}
	if s.resolver != nil {
		s.resolver.Invalidate(name)
	}
}

func overridesByKey(overrides []types.DisambiguationOverride) map[string]types.DisambiguationOverride {
	m := make(map[string]types.DisambiguationOverride, len(overrides))
	for _, o := range overrides {
		m[types.IdentityKey(o.Name)] = o
	}
	return m
}
