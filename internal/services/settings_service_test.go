package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

type recordingSettingsStore struct {
	saved *types.DisambiguationSettings
}

func (s *recordingSettingsStore) GetDisambiguationSettings(ctx context.Context) (*types.DisambiguationSettings, error) {
	if s.saved == nil {
		return nil, storage.ErrNotFound
	}
	return s.saved, nil
}

func (s *recordingSettingsStore) SaveDisambiguationSettings(ctx context.Context, settings *types.DisambiguationSettings) error {
	s.saved = settings
	return nil
}

var _ storage.SettingsStore = (*recordingSettingsStore)(nil)

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) PutNetwork(ctx context.Context, artistID string, result *types.NetworkResult) error {
	return nil
}

func (c *recordingCache) GetNetwork(ctx context.Context, artistID string) (*types.NetworkResult, error) {
	return nil, storage.ErrNotFound
}

func (c *recordingCache) InvalidateNetwork(ctx context.Context, artistID string) error {
	c.invalidated = append(c.invalidated, artistID)
	return nil
}

func (c *recordingCache) NetworkStats(ctx context.Context) (*storage.NetworkCacheStats, error) {
	return &storage.NetworkCacheStats{}, nil
}

var _ storage.NetworkCache = (*recordingCache)(nil)

type recordingInvalidator struct {
	names []string
}

func (r *recordingInvalidator) Invalidate(name string) {
	r.names = append(r.names, name)
}

func newTestService() (*SettingsService, *recordingSettingsStore, *recordingCache, *recordingInvalidator) {
	store := &recordingSettingsStore{}
	cache := &recordingCache{}
	resolver := &recordingInvalidator{}
	service := NewSettingsService(store, cache)
	service.SetNameInvalidator(resolver)
	return service, store, cache, resolver
}

func TestDisambiguationsEmptyBeforeFirstSave(t *testing.T) {
	service, _, _, _ := newTestService()

	settings, err := service.Disambiguations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, settings.Overrides)
	assert.Empty(t, settings.AmbiguousNames)
	assert.Empty(t, settings.ID)
}

func TestUpdateDisambiguationsPersists(t *testing.T) {
	service, store, _, _ := newTestService()

	updated, err := service.UpdateDisambiguations(context.Background(), &types.UpdateDisambiguationsRequest{
		Overrides: []types.DisambiguationOverride{
			{Name: "John Williams", CanonicalID: "mbid-composer", Note: "the film composer"},
		},
		AmbiguousNames: []string{"Bill Evans"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, updated.ID)
	assert.False(t, updated.CreatedAt.IsZero())
	assert.False(t, updated.UpdatedAt.IsZero())
	require.NotNil(t, store.saved)
	assert.Equal(t, updated, store.saved)

	id, ok := store.saved.OverrideFor(" john williams ")
	require.True(t, ok)
	assert.Equal(t, "mbid-composer", id)
	assert.True(t, store.saved.IsAmbiguous("bill evans"))
}

func TestUpdateDisambiguationsKeepsIdentityAcrossSaves(t *testing.T) {
	service, store, _, _ := newTestService()
	ctx := context.Background()

	first, err := service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{})
	require.NoError(t, err)

	second, err := service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{
		AmbiguousNames: []string{"Phoenix"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, []string{"Phoenix"}, store.saved.AmbiguousNames)
}

func TestAddedOverrideInvalidates(t *testing.T) {
	service, _, cache, resolver := newTestService()

	_, err := service.UpdateDisambiguations(context.Background(), &types.UpdateDisambiguationsRequest{
		Overrides: []types.DisambiguationOverride{
			{Name: "John Williams", CanonicalID: "mbid-composer"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"mbid-composer"}, cache.invalidated)
	assert.Equal(t, []string{"John Williams"}, resolver.names)
}

func TestRepointedOverrideInvalidatesBothIdentities(t *testing.T) {
	service, _, cache, resolver := newTestService()
	ctx := context.Background()

	_, err := service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{
		Overrides: []types.DisambiguationOverride{
			{Name: "John Williams", CanonicalID: "mbid-composer"},
		},
	})
	require.NoError(t, err)

	cache.invalidated = nil
	resolver.names = nil

	_, err = service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{
		Overrides: []types.DisambiguationOverride{
			{Name: "john williams", CanonicalID: "mbid-guitarist"},
		},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"mbid-guitarist", "mbid-composer"}, cache.invalidated)
	assert.NotEmpty(t, resolver.names)
}

func TestRemovedOverrideInvalidates(t *testing.T) {
	service, _, cache, _ := newTestService()
	ctx := context.Background()

	_, err := service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{
		Overrides: []types.DisambiguationOverride{
			{Name: "John Williams", CanonicalID: "mbid-composer"},
		},
	})
	require.NoError(t, err)
	cache.invalidated = nil

	_, err = service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"mbid-composer"}, cache.invalidated)
}

func TestUnchangedOverrideNotInvalidated(t *testing.T) {
	service, _, cache, resolver := newTestService()
	ctx := context.Background()

	overrides := []types.DisambiguationOverride{
		{Name: "John Williams", CanonicalID: "mbid-composer"},
	}
	_, err := service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{Overrides: overrides})
	require.NoError(t, err)

	cache.invalidated = nil
	resolver.names = nil

	_, err = service.UpdateDisambiguations(ctx, &types.UpdateDisambiguationsRequest{
		Overrides:      overrides,
		AmbiguousNames: []string{"Phoenix"},
	})
	require.NoError(t, err)

	assert.Empty(t, cache.invalidated)
	assert.Empty(t, resolver.names)
}

func TestUpdateWithoutResolverHook(t *testing.T) {
	store := &recordingSettingsStore{}
	cache := &recordingCache{}
	service := NewSettingsService(store, cache)

	_, err := service.UpdateDisambiguations(context.Background(), &types.UpdateDisambiguationsRequest{
		Overrides: []types.DisambiguationOverride{
			{Name: "John Williams", CanonicalID: "mbid-composer"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mbid-composer"}, cache.invalidated)
}
