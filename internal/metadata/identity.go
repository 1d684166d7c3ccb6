package metadata

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

const identityCacheSize = 1024

// IdentityResolver maps display names from generated networks to
// canonical profile ids in the identity store. Most names in a network
// are not in the store at all, so misses are cached alongside hits.
type IdentityResolver struct {
	artists storage.ArtistStore
	cache   *lru.Cache[string, string]
}

// NewIdentityResolver creates a resolver over the given store.
func NewIdentityResolver(artists storage.ArtistStore) *IdentityResolver {
	cache, _ := lru.New[string, string](identityCacheSize)
	return &IdentityResolver{
		artists: artists,
		cache:   cache,
	}
}

// ResolveID returns the canonical profile id for the named artist, or
// storage.ErrNotFound when the identity store has no matching record.
// Name matching is case-insensitive, delegated to the store.
func (r *IdentityResolver) ResolveID(ctx context.Context, name string) (string, error) {
	key := types.IdentityKey(name)
	if key == "" {
		return "", storage.ErrNotFound
	}
	if cached, ok := r.cache.Get(key); ok {
		if cached == "" {
			return "", storage.ErrNotFound
		}
		return cached, nil
	}

	artist, err := r.artists.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			r.cache.Add(key, "")
		}
		return "", err
	}
	r.cache.Add(key, artist.ID)
	return artist.ID, nil
}

// Invalidate drops the cached entry for a name. The settings service
// calls this when a disambiguation override changes which record a
// name should resolve to.
func (r *IdentityResolver) Invalidate(name string) {
	r.cache.Remove(types.IdentityKey(name))
}
