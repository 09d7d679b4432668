package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slidecast/slidecast/internal/api"
	"github.com/slidecast/slidecast/internal/config"
	"github.com/slidecast/slidecast/internal/db"
	"github.com/slidecast/slidecast/internal/queue"
	"github.com/slidecast/slidecast/internal/services"
	"github.com/slidecast/slidecast/internal/storage"
	"github.com/slidecast/slidecast/internal/worker"
)

func main() {
	log.Println("Starting Slidecast API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage — optional: exports degrade to local file references
	// when no bucket is configured
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	if stor.Configured() {
		log.Printf("Storage enabled (bucket: %s)", cfg.SupabaseStorageBucket)
	} else {
		log.Println("WARNING: Storage not configured — exported videos keep local file references")
	}

	// Create API handler
	handler := api.NewHandler(database, q)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		runner := services.NewRunner()
		rendererSvc, err := services.NewRendererService(runner, cfg.RendererCommand)
		if err != nil {
			log.Fatalf("Failed to initialize renderer: %v", err)
		}
		ffmpegSvc := services.NewFFmpegService(runner)
		imageSvc := services.NewImageService()

		w := worker.New(database, q, rendererSvc, ffmpegSvc, imageSvc, stor, cfg.TemplateURL, cfg.ExportsDir)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
