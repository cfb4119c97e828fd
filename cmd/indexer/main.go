// Command indexer runs the background workers: it serves review-fetch
// requests over NATS so the API process never talks to the retail sites
// directly, and consumes published review batches to rebuild the vector
// index, optionally mirroring snapshots into Qdrant.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/YorumAI/yorum-engine/engine/ingest"
	"github.com/YorumAI/yorum-engine/engine/provider"
	"github.com/YorumAI/yorum-engine/engine/scraper"
	"github.com/YorumAI/yorum-engine/engine/semantic"
	"github.com/YorumAI/yorum-engine/pkg/metrics"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	_ = godotenv.Load()

	var (
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL")
		qdrantAddr  = flag.String("qdrant", "", "Qdrant gRPC address (empty disables mirroring)")
		collection  = flag.String("collection", "reviews", "Qdrant collection name prefix")
		metricsPort = flag.Int("metrics-port", 0, "serve /metrics on this port (0 disables)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*natsURL, *qdrantAddr, *collection, *metricsPort, logger); err != nil {
		logger.Error("indexer exited with error", "err", err)
		os.Exit(1)
	}
}

func run(natsURL, qdrantAddr, collection string, metricsPort int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := nats.Connect(natsURL,
		nats.Name("yorum-indexer"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return err
	}
	defer nc.Close()

	// Fetch worker: answers reviews.fetch requests with the built-in scrapers.
	reg := scraper.NewRegistry()
	reg.Register("trendyol", scraper.NewTrendyol("", logger))
	reg.Register("hepsiburada", scraper.NewHepsiburada("", logger))

	fetchSub, err := scraper.Serve(nc, reg)
	if err != nil {
		return err
	}
	defer fetchSub.Unsubscribe()
	logger.Info("fetch worker listening", "subject", scraper.SubjectFetch)

	// Index worker: rebuilds from review batches published on reviews.ingest.
	var embedder provider.Embedder
	switch envOr("PROVIDER", "openai") {
	case "ollama":
		embedder = provider.NewOllama(
			envOr("OLLAMA_URL", "http://localhost:11434"),
			envOr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
			"",
		)
	default:
		embedder = provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
			EmbedModel: os.Getenv("EMBED_MODEL"),
		})
	}

	var mirror *semantic.Mirror
	if qdrantAddr != "" {
		mirror, err = semantic.NewMirror(qdrantAddr, collection, logger)
		if err != nil {
			return err
		}
		defer mirror.Close()
	}

	holder := semantic.NewHolder()
	builder := ingest.NewBuilder(embedder, holder, mirror, logger)

	ingestSub, err := ingest.Consume(nc, builder)
	if err != nil {
		return err
	}
	defer ingestSub.Unsubscribe()
	logger.Info("index worker listening", "subject", ingest.SubjectIngest, "qdrant", qdrantAddr != "")

	if metricsPort > 0 {
		metrics.Default.ServeAsync(metricsPort)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Let in-flight requests finish replying before the connection drops.
	return nc.Drain()
}
