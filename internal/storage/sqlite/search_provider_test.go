package sqlite

import (
	"context"
	"testing"

	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

func TestSearchArtists_BasicMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{
		ID:   "artist:monk",
		Name: "Thelonious Monk",
		Bio:  "American jazz pianist and composer.",
	})
	mustStoreArtist(t, store, &types.ArtistIdentity{
		ID:   "artist:dolly",
		Name: "Dolly Parton",
		Bio:  "American country singer-songwriter.",
	})

	result, err := store.SearchArtists(ctx, storage.SearchOptions{Query: "monk"})
	if err != nil {
		t.Fatalf("SearchArtists() failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(result.Items))
	}
	if result.Items[0].ID != "artist:monk" {
		t.Errorf("match: got %q, want artist:monk", result.Items[0].ID)
	}
}

func TestSearchArtists_MatchesBio(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{
		ID:   "artist:bjork",
		Name: "Björk",
		Bio:  "Icelandic experimental musician.",
	})

	result, err := store.SearchArtists(ctx, storage.SearchOptions{Query: "icelandic"})
	if err != nil {
		t.Fatalf("SearchArtists() failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "artist:bjork" {
		t.Errorf("bio match: got %v items", len(result.Items))
	}
}

func TestSearchArtists_PrefixMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{
		ID:   "artist:monk",
		Name: "Thelonious Monk",
	})

	// Partial typing should still hit via the word* prefix expansion.
	result, err := store.SearchArtists(ctx, storage.SearchOptions{Query: "thelo"})
	if err != nil {
		t.Fatalf("SearchArtists() failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Errorf("prefix match items: got %d, want 1", len(result.Items))
	}
}

func TestSearchArtists_NoMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{ID: "artist:one", Name: "Somebody"})

	result, err := store.SearchArtists(ctx, storage.SearchOptions{Query: "zzyzx"})
	if err != nil {
		t.Fatalf("SearchArtists() failed: %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("items: got %d, want 0", len(result.Items))
	}
	if result.Total != 0 {
		t.Errorf("total: got %d, want 0", result.Total)
	}
}

func TestSearchArtists_EmptyQueryFallsBackToList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{ID: "artist:a", Name: "Aretha Franklin"})
	mustStoreArtist(t, store, &types.ArtistIdentity{ID: "artist:b", Name: "Bill Evans"})

	result, err := store.SearchArtists(ctx, storage.SearchOptions{Query: "   "})
	if err != nil {
		t.Fatalf("SearchArtists(empty) failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(result.Items))
	}
	if result.Items[0].Name != "Aretha Franklin" {
		t.Errorf("first item: got %q, want name-ordered Aretha Franklin", result.Items[0].Name)
	}
}

func TestSearchArtists_SpecialCharactersDoNotError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{ID: "artist:ac", Name: "AC/DC"})

	queries := []string{
		`"unbalanced quote`,
		`(paren`,
		`star* dash- caret^`,
		`colon: question?`,
		`NOT AND OR`,
	}
	for _, q := range queries {
		if _, err := store.SearchArtists(ctx, storage.SearchOptions{Query: q}); err != nil {
			t.Errorf("SearchArtists(%q) failed: %v", q, err)
		}
	}
}

func TestSearchArtists_FuzzyFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{
		ID:   "artist:quincy",
		Name: "Quincy Jones",
		Bio:  "Producer and arranger.",
	})

	// "quincy xyzzyplugh" has no combined match, but the fallback ORs the
	// terms so the quincy half still hits.
	result, err := store.SearchArtists(ctx, storage.SearchOptions{
		Query:         "quincy xyzzyplugh",
		FuzzyFallback: true,
	})
	if err != nil {
		t.Fatalf("SearchArtists() failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Errorf("fuzzy fallback items: got %d, want 1", len(result.Items))
	}
}

func TestSanitiseFTSQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"single word", "Monk", "monk*"},
		{"two words", "Thelonious Monk", "thelonious* OR monk*"},
		{"strips stop words", "the Beatles", "beatles*"},
		{"strips single letters", "a b Prince", "prince*"},
		{"strips fts metacharacters", `"Miles" (Davis)*`, "miles* OR davis*"},
		{"all filtered falls back to cleaned text", "a", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitiseFTSQuery(tt.raw)
			if got != tt.want {
				t.Errorf("sanitiseFTSQuery(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestVectorSearch_RanksByCosineSimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := func(id string, vector []float32) {
		t.Helper()
		mustStoreArtist(t, store, &types.ArtistIdentity{ID: id, Name: "Artist " + id})
		if err := store.StoreEmbedding(ctx, id, vector, len(vector), "test-model"); err != nil {
			t.Fatalf("StoreEmbedding(%s) failed: %v", id, err)
		}
	}

	seed("artist:close", []float32{1, 0, 0})
	seed("artist:far", []float32{0, 1, 0})
	seed("artist:middle", []float32{1, 1, 0})

	result, err := store.VectorSearch(ctx, []float32{1, 0, 0}, storage.SearchOptions{Limit: 10})
	if err != nil {
		t.Fatalf("VectorSearch() failed: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items: got %d, want 3", len(result.Items))
	}
	if result.Items[0].ID != "artist:close" {
		t.Errorf("best match: got %q, want artist:close", result.Items[0].ID)
	}
	if result.Items[2].ID != "artist:far" {
		t.Errorf("worst match: got %q, want artist:far", result.Items[2].ID)
	}
}

func TestVectorSearch_EmptyQueryVector(t *testing.T) {
	store := newTestStore(t)

	result, err := store.VectorSearch(context.Background(), nil, storage.SearchOptions{})
	if err != nil {
		t.Fatalf("VectorSearch(nil) failed: %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("items: got %d, want 0", len(result.Items))
	}
}

func TestVectorSearch_SkipsMismatchedDimensions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustStoreArtist(t, store, &types.ArtistIdentity{ID: "artist:dim2", Name: "Two Dims"})
	if err := store.StoreEmbedding(ctx, "artist:dim2", []float32{1, 0}, 2, "m"); err != nil {
		t.Fatalf("StoreEmbedding() failed: %v", err)
	}
	mustStoreArtist(t, store, &types.ArtistIdentity{ID: "artist:dim3", Name: "Three Dims"})
	if err := store.StoreEmbedding(ctx, "artist:dim3", []float32{1, 0, 0}, 3, "m"); err != nil {
		t.Fatalf("StoreEmbedding() failed: %v", err)
	}

	result, err := store.VectorSearch(ctx, []float32{1, 0, 0}, storage.SearchOptions{Limit: 10})
	if err != nil {
		t.Fatalf("VectorSearch() failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "artist:dim3" {
		t.Errorf("expected only the 3-dim artist, got %d items", len(result.Items))
	}
}
