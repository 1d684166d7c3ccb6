package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful/linernotes/internal/catalog"
	"github.com/crateful/linernotes/internal/config"
	"github.com/crateful/linernotes/internal/storage/sqlite"
)

const testCatalog = `artists:
  - name: Carole King
    bio: Songwriter behind dozens of 1960s hits before Tapestry.
  - name: Gerry Goffin
    bio: Lyricist and longtime King collaborator.
`

func TestSeed_ImportsCatalogIntoStore(t *testing.T) {
	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "artists.yaml")
	require.NoError(t, os.WriteFile(catalogFile, []byte(testCatalog), 0o644))

	store, err := sqlite.NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	seeder := catalog.NewSeeder(store)
	result, err := seeder.Seed(context.Background(), catalogFile)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesRead)
	assert.Equal(t, 2, result.Created)
	assert.Empty(t, result.Errors)

	// Seeded names resolve through the identity store
	artist, err := store.GetByName(context.Background(), "Carole King")
	require.NoError(t, err)
	assert.NotEmpty(t, artist.ID)

	// Repeat runs update in place rather than duplicating
	result, err = seeder.Seed(context.Background(), catalogFile)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Updated)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOpenStore_CreatesDataDir(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.Storage.StorageEngine = "sqlite"
	cfg.Storage.DataPath = filepath.Join(t.TempDir(), "nested", "data")

	store, err := openStore(cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = os.Stat(cfg.Storage.DataPath)
	assert.NoError(t, err)
}

func TestEmbeddingBackfill_RejectsProviderWithoutEmbeddings(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.LLM.LLMProvider = "anthropic"

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, err = embeddingBackfill(cfg, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support embeddings")
}
