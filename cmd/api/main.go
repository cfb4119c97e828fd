// Package main implements the review question-answering API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/YorumAI/yorum-engine/engine/ingest"
	"github.com/YorumAI/yorum-engine/engine/provider"
	"github.com/YorumAI/yorum-engine/engine/rag"
	"github.com/YorumAI/yorum-engine/engine/scraper"
	"github.com/YorumAI/yorum-engine/engine/semantic"
	"github.com/YorumAI/yorum-engine/pkg/metrics"
	"github.com/YorumAI/yorum-engine/pkg/mid"
	"github.com/YorumAI/yorum-engine/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	CORSOrigin string
	RateRPS    float64

	Provider       string // "openai" or "ollama"
	OpenAIKey      string
	OpenAIBaseURL  string
	EmbedModel     string
	ChatModel      string
	OllamaURL      string
	OllamaEmbModel string

	QdrantURL        string
	QdrantCollection string

	NATSURL     string
	ScraperMode string // "local" or "nats"
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		RateRPS:    10,

		Provider:       envOr("PROVIDER", "openai"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		EmbedModel:     os.Getenv("EMBED_MODEL"),
		ChatModel:      os.Getenv("CHAT_MODEL"),
		OllamaURL:      envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbModel: envOr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		QdrantURL:        os.Getenv("QDRANT_URL"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "reviews"),

		NATSURL:     os.Getenv("NATS_URL"),
		ScraperMode: envOr("SCRAPER_MODE", "local"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Model providers ---
	var embedder provider.Embedder
	var generator provider.Generator
	switch cfg.Provider {
	case "ollama":
		p := provider.NewOllama(cfg.OllamaURL, cfg.OllamaEmbModel, cfg.ChatModel)
		embedder, generator = p, p
	default:
		p := provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			EmbedModel: cfg.EmbedModel,
			ChatModel:  cfg.ChatModel,
		})
		embedder, generator = p, p
	}

	// --- Optional Qdrant mirror ---
	var mirror *semantic.Mirror
	if cfg.QdrantURL != "" {
		m, err := semantic.NewMirror(cfg.QdrantURL, cfg.QdrantCollection, logger)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer m.Close()
		mirror = m
	}

	// --- Review fetchers ---
	fetchers := scraper.NewRegistry()
	fetchers.Register("trendyol", scraper.NewTrendyol("", logger))
	fetchers.Register("hepsiburada", scraper.NewHepsiburada("", logger))
	if cfg.ScraperMode == "nats" {
		if cfg.NATSURL == "" {
			return fmt.Errorf("SCRAPER_MODE=nats requires NATS_URL")
		}
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("yorum-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		remote := scraper.NewNATSFetcher(nc)
		fetchers.Register("trendyol", remote)
		fetchers.Register("hepsiburada", remote)
	}

	// --- Query pipeline ---
	holder := semantic.NewHolder()
	builder := ingest.NewBuilder(embedder, holder, mirror, logger)
	svc := rag.NewService(fetchers, builder, holder, embedder, generator,
		resilience.NewBreaker(resilience.DefaultBreakerOpts), logger)

	// --- HTTP server ---
	handler := mid.Chain(routes(svc, holder),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("yorum-api"),
		mid.CORS(cfg.CORSOrigin),
		mid.RateLimit(cfg.RateRPS, int(cfg.RateRPS)*2),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 11 * time.Minute, // above the overall query timeout
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func routes(svc *rag.Service, holder *semantic.Holder) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", handleHealth(holder))
	mux.HandleFunc("POST /api/v1/validate-url", handleValidateURL)
	mux.HandleFunc("GET /api/v1/sites", handleSites)
	mux.HandleFunc("POST /api/v1/query", handleQuery(svc))
	mux.HandleFunc("POST /api/v1/query/batch", handleBatch(svc))
	mux.HandleFunc("GET /api/v1/query/suggestions", handleSuggestions)
	mux.Handle("GET /metrics", metrics.Default.Handler())
	return mux
}
