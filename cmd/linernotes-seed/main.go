// Command linernotes-seed imports an artist catalog into the identity
// store. Network generation only serves artists the catalog introduced, so
// this runs at deploy time and whenever the catalog changes.
//
// Usage:
//
//	linernotes-seed -catalog ./catalog            # a file or a directory
//	linernotes-seed -catalog ./catalog -embed     # also backfill bio embeddings
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/crateful/linernotes/internal/catalog"
	"github.com/crateful/linernotes/internal/config"
	"github.com/crateful/linernotes/internal/llm"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/internal/storage/postgres"
	"github.com/crateful/linernotes/internal/storage/sqlite"
)

func main() {
	catalogPath := flag.String("catalog", "", "Path to a catalog file or directory (.yaml/.yml/.json)")
	embed := flag.Bool("embed", false, "Backfill bio embeddings for records that lack one")
	flag.Parse()

	if *catalogPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Load .env if present; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Seeding stops cleanly mid-catalog on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	seeder := catalog.NewSeeder(store)
	if *embed {
		embedder, embeddings, err := embeddingBackfill(cfg, store)
		if err != nil {
			log.Fatalf("Embedding backfill unavailable: %v", err)
		}
		seeder.SetEmbeddingBackfill(embedder, embeddings)
	}

	result, err := seeder.Seed(ctx, *catalogPath)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Printf("Seeded %d records from %d files: %d created, %d updated, %d skipped",
		result.Records, result.FilesRead, result.Created, result.Updated, result.Skipped)
	if *embed {
		fmt.Printf(", %d embedded", result.Embedded)
	}
	fmt.Println()

	for _, msg := range result.Errors {
		log.Printf("Warning: %s", msg)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewStore(cfg.Storage.PostgresDSN)
	case "sqlite", "":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlite.NewStore(cfg.Storage.DataPath + "/linernotes.db")
	default:
		return nil, fmt.Errorf("unsupported storage engine: %q", cfg.Storage.StorageEngine)
	}
}

// embeddingBackfill resolves the embedding generator and the store's
// embedding surface, or explains why backfill cannot run.
func embeddingBackfill(cfg *config.Config, store storage.Store) (llm.EmbeddingGenerator, storage.EmbeddingProvider, error) {
	embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	if embedder == nil {
		return nil, nil, fmt.Errorf("provider %q does not support embeddings", cfg.LLM.LLMProvider)
	}
	embeddings, ok := store.(storage.EmbeddingProvider)
	if !ok {
		return nil, nil, fmt.Errorf("storage engine %q does not store embeddings", cfg.Storage.StorageEngine)
	}
	return embedder, embeddings, nil
}
