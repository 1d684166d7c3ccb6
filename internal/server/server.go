// Package server provides HTTP server initialization and lifecycle management
// for the linernotes API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/crateful/linernotes/internal/config"
	"github.com/crateful/linernotes/internal/engine"
	"github.com/crateful/linernotes/internal/services"
	"github.com/crateful/linernotes/internal/storage"
	"github.com/crateful/linernotes/web/handlers"
)

// dbGetter interface for stores that expose their database connection
type dbGetter interface {
	GetDB() *sql.DB
}

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server over an already-wired
// pipeline: the storage backend, the network builder, the collaboration
// resolver (the source chain) and the settings service.
//
// The builder's lifecycle callbacks are bridged onto the WebSocket hub so
// connected clients see generation progress live; the same bridge keeps
// the lifetime counters served by /api/stats.
//
// embedder may be nil, which disables the semantic half of artist search.
// Returns the actual address being listened on (useful for testing with
// port 0) and the WebSocketHub.
func Start(ctx context.Context, cfg *config.Config, store storage.Store, builder *engine.NetworkBuilder, collab handlers.CollaborationResolver, settingsService *services.SettingsService, embedder handlers.QueryEmbedder) (string, *handlers.WebSocketHub) {
	mux := http.NewServeMux()

	// Create WebSocket hub, allowing the configured serving origin
	wsHub := handlers.NewWebSocketHub(
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	)
	go wsHub.Run()

	// Bridge builder lifecycle callbacks onto the hub
	bridge := handlers.NewEventBridge(wsHub)
	builder.SetOnGenerationStarted(bridge.GenerationStarted)
	builder.SetOnSourceSelected(bridge.SourceSelected)
	builder.SetOnGenerationCompleted(bridge.GenerationCompleted)
	builder.SetOnGenerationFailed(bridge.GenerationFailed)

	// Create rate limiter (10 req/sec, burst of 20)
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	// Config handlers persist operator settings when the store exposes its
	// database connection (both backends do).
	var db *sql.DB
	if dbStore, ok := store.(dbGetter); ok {
		db = dbStore.GetDB()
	}

	apiHandlers := handlers.NewAPIHandlers(builder, store, cfg)
	searchHandler := handlers.NewSearchHandler(store, embedder)
	collaborationHandler := handlers.NewCollaborationHandler(collab)
	statsHandler := handlers.NewStatsHandler(store, store, bridge)
	settingsHandlers := handlers.NewSettingsHandlers(settingsService)
	configHandlers := handlers.NewConfigHandlers(cfg, db)
	llmModelsHandler := handlers.NewLLMModelHandlers(cfg)
	debugHandler := handlers.NewDebugHandler(builder.Traces())

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/network/{artistName}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			apiHandlers.GetNetwork(w, r)
		case http.MethodDelete:
			apiHandlers.DeleteNetwork(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/network-by-id/{artistId}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apiHandlers.GetNetworkByID(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/artists", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apiHandlers.ListArtists(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/artists/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apiHandlers.GetArtist(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/artist-options/{query}", searchHandler.ArtistOptions)
	apiMux.HandleFunc("/api/collaboration/{name1}/{name2}", collaborationHandler.GetCollaboration)
	apiMux.HandleFunc("/api/stats", statsHandler.GetStats)

	// Disambiguation settings (saving an override invalidates that
	// artist's cached network)
	apiMux.HandleFunc("/api/settings/disambiguations", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			settingsHandlers.GetDisambiguations(w, r)
		case http.MethodPut:
			settingsHandlers.UpdateDisambiguations(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Runtime configuration
	apiMux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			configHandlers.GetConfig(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/config/generation", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			configHandlers.UpdateGeneration(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// LLM model discovery and testing routes
	apiMux.HandleFunc("/api/llm/available-models", llmModelsHandler.GetAvailableModels)
	apiMux.HandleFunc("/api/llm/test-connection", llmModelsHandler.TestConnection)

	// Pipeline debugging
	apiMux.HandleFunc("/api/debug/generation-traces", debugHandler.GenerationTraces)

	// Health endpoint — no auth required, used by monitoring
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	mux.Handle("/ws", wsHub)

	// Wrap entire server with rate limiting, then security headers
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	// Create server with security timeouts. Write generously: a cold
	// network build walks rate-limited providers.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub
}
