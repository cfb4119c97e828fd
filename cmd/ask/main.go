// Command ask answers a single question about a product's reviews from the
// command line, without running the API server.
//
//	ask -url https://www.trendyol.com/marka/urun-p-123456 -q "Kalitesi nasıl?"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/engine/ingest"
	"github.com/YorumAI/yorum-engine/engine/provider"
	"github.com/YorumAI/yorum-engine/engine/rag"
	"github.com/YorumAI/yorum-engine/engine/scraper"
	"github.com/YorumAI/yorum-engine/engine/semantic"
	"github.com/YorumAI/yorum-engine/pkg/resilience"
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
		question   = flag.String("q", "", "question to answer (required)")
		productURL = flag.String("url", "", "product page URL (required)")
		maxReviews = flag.Int("max-reviews", 0, "cap on fetched reviews (0 = default)")
		asJSON     = flag.Bool("json", false, "print the full result as JSON")
		verbose    = flag.Bool("v", false, "log pipeline progress to stderr")
	)
	flag.Parse()

	if *question == "" || *productURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var embedder provider.Embedder
	var generator provider.Generator
	switch envOr("PROVIDER", "openai") {
	case "ollama":
		p := provider.NewOllama(
			envOr("OLLAMA_URL", "http://localhost:11434"),
			envOr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
			os.Getenv("CHAT_MODEL"),
		)
		embedder, generator = p, p
	default:
		p := provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
			EmbedModel: os.Getenv("EMBED_MODEL"),
			ChatModel:  os.Getenv("CHAT_MODEL"),
		})
		embedder, generator = p, p
	}

	reg := scraper.NewRegistry()
	reg.Register("trendyol", scraper.NewTrendyol("", logger))
	reg.Register("hepsiburada", scraper.NewHepsiburada("", logger))

	holder := semantic.NewHolder()
	builder := ingest.NewBuilder(embedder, holder, nil, logger)
	svc := rag.NewService(reg, builder, holder, embedder, generator,
		resilience.NewBreaker(resilience.DefaultBreakerOpts), logger)

	result, err := svc.Answer(context.Background(), domain.Query{
		Question:   *question,
		ProductURL: *productURL,
		MaxReviews: *maxReviews,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}
	fmt.Println(result.Answer)
	fmt.Fprintf(os.Stderr, "\n(%d yorum, %d parça, %s)\n",
		result.TotalReviews, result.UsedChunks, result.ProcessingTime.Round(10*time.Millisecond))
}
