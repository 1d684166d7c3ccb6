package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crateful/linernotes/internal/llm"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/pkg/types"
)

// SeedResult is the summary of one seeding run.
type SeedResult struct {
	FilesRead int           `json:"files_read"`
	Records   int           `json:"records"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Embedded  int           `json:"embedded"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

// Seeder imports catalog files into the identity store. Repeat runs are
// idempotent: records are matched by id when the catalog carries one, by
// name otherwise, and matched records are updated in place.
type Seeder struct {
	artists    storage.ArtistStore
	embedder   llm.EmbeddingGenerator
	embeddings storage.EmbeddingProvider
}

// NewSeeder creates a seeder over the identity store.
func NewSeeder(artists storage.ArtistStore) *Seeder {
	return &Seeder{artists: artists}
}

// SetEmbeddingBackfill enables bio embedding during seeding. Records with a
// bio and no stored embedding get one; existing embeddings are left alone.
func (s *Seeder) SetEmbeddingBackfill(embedder llm.EmbeddingGenerator, embeddings storage.EmbeddingProvider) {
	s.embedder = embedder
	s.embeddings = embeddings
}

// Seed imports the catalog file or directory at path. Record-level problems
// are accumulated in the result; only an unreadable path fails the run.
func (s *Seeder) Seed(ctx context.Context, path string) (*SeedResult, error) {
	start := time.Now()

	files, err := collectCatalogFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no catalog files at %q", path)
	}

	result := &SeedResult{}
	for _, file := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		data, err := os.ReadFile(file)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read error: %v", filepath.Base(file), err))
			continue
		}
		parsed, err := ParseFile(data, file)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		result.FilesRead++
		log.Printf("catalog: %s: %d records", filepath.Base(file), len(parsed.Artists))
		for _, record := range parsed.Artists {
			s.seedRecord(ctx, record, result)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (s *Seeder) seedRecord(ctx context.Context, record Record, result *SeedResult) {
	result.Records++

	name := strings.TrimSpace(record.Name)
	if name == "" {
		result.Skipped++
		result.Errors = append(result.Errors, "record without a name skipped")
		return
	}

	now := time.Now()
	artist := &types.ArtistIdentity{
		ID:             strings.TrimSpace(record.ID),
		Name:           name,
		SortName:       record.SortName,
		Bio:            record.Bio,
		ImageURL:       record.ImageURL,
		Disambiguation: record.Disambiguation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	existing := s.lookupExisting(ctx, artist)
	if existing != nil {
		artist.ID = existing.ID
		artist.CreatedAt = existing.CreatedAt
	} else if artist.ID == "" {
		artist.ID = uuid.NewString()
	}

	if err := s.artists.Store(ctx, artist); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
		return
	}
	if existing != nil {
		result.Updated++
	} else {
		result.Created++
	}

	s.backfillEmbedding(ctx, artist, result)
}

// lookupExisting finds the stored record this entry updates: by id when
// the catalog pins one, by name otherwise.
func (s *Seeder) lookupExisting(ctx context.Context, artist *types.ArtistIdentity) *types.ArtistIdentity {
	if artist.ID != "" {
		if existing, err := s.artists.Get(ctx, artist.ID); err == nil {
			return existing
		}
		return nil
	}
	if existing, err := s.artists.GetByName(ctx, artist.Name); err == nil {
		return existing
	}
	return nil
}

func (s *Seeder) backfillEmbedding(ctx context.Context, artist *types.ArtistIdentity, result *SeedResult) {
	if s.embedder == nil || s.embeddings == nil || strings.TrimSpace(artist.Bio) == "" {
		return
	}
	if _, err := s.embeddings.GetEmbedding(ctx, artist.ID); err == nil {
		return
	}

	text := llm.TruncateToTokens(artist.Bio, llm.DefaultEmbedTokenBudget)
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("catalog: embedding for %q failed: %v", artist.Name, err)
		result.Errors = append(result.Errors, fmt.Sprintf("%s: embedding: %v", artist.Name, err))
		return
	}
	if err := s.embeddings.StoreEmbedding(ctx, artist.ID, embedding, len(embedding), s.embedder.GetModel()); err != nil {
		log.Printf("catalog: storing embedding for %q failed: %v", artist.Name, err)
		result.Errors = append(result.Errors, fmt.Sprintf("%s: embedding: %v", artist.Name, err))
		return
	}
	result.Embedded++
}

// collectCatalogFiles resolves path to the list of catalog files it names:
// the file itself, or every .yaml/.yml/.json under the directory, sorted
// for deterministic runs. Hidden directories are skipped.
func collectCatalogFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access catalog path %q: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
