// Command linernotes-web runs the collaboration network API server.
//
// It wires the full generation pipeline — source adapter chain, network
// builder, metadata enricher — over the configured storage backend and
// serves the HTTP/WebSocket API until interrupted.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/crateful/linernotes/internal/config"
	"github.com/crateful/linernotes/internal/engine"
	"github.com/crateful/linernotes/internal/llm"
	"github.com/crateful/linernotes/internal/metadata"
	"github.com/crateful/linernotes/internal/server"
	"github.com/crateful/linernotes/internal/services"
	"github.com/crateful/linernotes/internal/sources"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/internal/storage/postgres"
	"github.com/crateful/linernotes/internal/storage/sqlite"
	"github.com/crateful/linernotes/web/handlers"
)

func main() {
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

	// Overlay operator settings persisted in the settings table
	cfg = overlayDBSettings(cfg, store)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline, err := buildPipeline(cfg, store)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer pipeline.Close()

	addr, _ := server.Start(ctx, cfg, store, pipeline.Builder, pipeline.Chain, pipeline.Settings, pipeline.Embedder)
	log.Printf("linernotes API running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
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

// Pipeline holds the wired generation components the server serves.
type Pipeline struct {
	Builder  *engine.NetworkBuilder
	Chain    *sources.Chain
	Settings *services.SettingsService
	Embedder handlers.QueryEmbedder

	curated *sources.CuratedAdapter
}

// Close releases pipeline resources (the curated-table file watcher).
func (p *Pipeline) Close() {
	if p.curated != nil {
		p.curated.Close()
	}
}

// buildPipeline wires the source adapters, the chain, the builder and its
// collaborators from configuration.
func buildPipeline(cfg *config.Config, store storage.Store) (*Pipeline, error) {
	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	timeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second

	generative := sources.NewGenerativeAdapter(generator)
	musicgraph := sources.NewMusicgraphAdapter(sources.MusicgraphConfig{
		BaseURL:         cfg.Providers.MusicgraphURL,
		UserAgent:       cfg.Providers.MusicgraphUserAgent,
		Timeout:         timeout,
		RequestInterval: time.Duration(cfg.Providers.MusicgraphIntervalMS) * time.Millisecond,
	}, store)
	encyclopedia := sources.NewEncyclopediaAdapter(sources.EncyclopediaConfig{
		BaseURL: cfg.Providers.EncyclopediaURL,
		Timeout: timeout,
	})
	curated, err := sources.NewCuratedAdapter(cfg.Curated.OverridePath, cfg.Curated.Watch)
	if err != nil {
		return nil, fmt.Errorf("curated table: %w", err)
	}

	chain := sources.NewChain(sources.NewFakeEntryFilter(),
		generative, musicgraph, encyclopedia, curated)

	engineCfg := engine.DefaultConfig()
	if cfg.Generation.EnrichWorkers > 0 {
		engineCfg.EnrichWorkers = cfg.Generation.EnrichWorkers
	}

	builder, err := engine.NewNetworkBuilder(engineCfg, store, store, chain)
	if err != nil {
		curated.Close()
		return nil, fmt.Errorf("network builder: %w", err)
	}
	builder.SetSettingsStore(store)
	builder.SetCreativeSource(generative)
	builder.SetRoleDetector(generative)
	builder.SetTopSource(generative)

	images := metadata.NewImageClient(metadata.ImageClientConfig{
		BaseURL: cfg.Providers.ImageAPIURL,
		APIKey:  cfg.Providers.ImageAPIKey,
		Timeout: timeout,
	})
	resolver := metadata.NewIdentityResolver(store)
	builder.SetEnricher(engine.NewMetadataEnricher(images, resolver, engineCfg.EnrichWorkers))

	settingsService := services.NewSettingsService(store, store)
	settingsService.SetNameInvalidator(resolver)

	var embedder handlers.QueryEmbedder
	if eg, err := llm.NewEmbeddingGenerator(cfg.LLM); err == nil && eg != nil {
		embedder = eg
	}

	return &Pipeline{
		Builder:  builder,
		Chain:    chain,
		Settings: settingsService,
		Embedder: embedder,
		curated:  curated,
	}, nil
}

// dbGetter is satisfied by stores that expose their database connection.
type dbGetter interface {
	GetDB() *sql.DB
}

// overlayDBSettings re-reads config with the settings table overlay when
// the store exposes its database connection. Falls back to the env-only
// config on any failure.
func overlayDBSettings(cfg *config.Config, store storage.Store) *config.Config {
	dbStore, ok := store.(dbGetter)
	if !ok {
		return cfg
	}
	overlaid, err := config.LoadConfigFromDB(dbStore.GetDB())
	if err != nil {
		log.Printf("Warning: failed to load settings from database: %v", err)
		return cfg
	}
	return overlaid
}
