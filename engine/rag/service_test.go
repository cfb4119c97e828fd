package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/engine/ingest"
	"github.com/YorumAI/yorum-engine/engine/scraper"
	"github.com/YorumAI/yorum-engine/engine/semantic"
	"github.com/YorumAI/yorum-engine/pkg/resilience"
)

type stubEmbedder struct{ dim int }

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, e.dim)
		for j, r := range t {
			vec[j%e.dim] += float32(r % 7)
		}
		out[i] = vec
	}
	return out, nil
}

type stubGenerator struct {
	response   string
	calls      int
	failOn     int // fail on the Nth call (1-based), 0 never
	lastPrompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.lastPrompt = prompt
	if g.failOn != 0 && g.calls == g.failOn {
		return "", errors.New("model unavailable")
	}
	return g.response, nil
}

type stubFetcher struct {
	reviews []domain.Review
	err     error
	calls   int
}

func (f *stubFetcher) FetchReviews(_ context.Context, _ scraper.FetchRequest) ([]domain.Review, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.reviews, nil
}

func fetcherReviews(n int) []domain.Review {
	reviews := make([]domain.Review, n)
	for i := range reviews {
		reviews[i] = domain.Review{
			ID:         fmt.Sprintf("r%d", i),
			Text:       fmt.Sprintf("Yorum %d: ürün kaliteli ve kargo hızlı geldi, memnun kaldım.", i),
			Rating:     4,
			SourceSite: "trendyol",
		}
	}
	return reviews
}

func newTestService(gen *stubGenerator, fetcher *stubFetcher) (*Service, *semantic.Holder) {
	log := slog.New(slog.DiscardHandler)
	holder := semantic.NewHolder()
	embedder := &stubEmbedder{dim: 8}
	builder := ingest.NewBuilder(embedder, holder, nil, log)

	reg := scraper.NewRegistry()
	if fetcher != nil {
		reg.Register("trendyol", fetcher)
	}

	svc := NewService(reg, builder, holder, embedder, gen,
		resilience.NewBreaker(resilience.DefaultBreakerOpts), log)
	return svc, holder
}

const generatedAnswer = "**Genel Değerlendirme:** Kullanıcılar genel olarak memnun.\n\n**Sonuç:** Tavsiye edilir."

func TestAnswer_WithURLIngestsAndAnswers(t *testing.T) {
	fetcher := &stubFetcher{reviews: fetcherReviews(6)}
	gen := &stubGenerator{response: generatedAnswer}
	svc, holder := newTestService(gen, fetcher)

	result, err := svc.Answer(context.Background(), domain.Query{
		Question:   "Ürün kalitesi nasıl?",
		ProductURL: "https://www.trendyol.com/marka/urun-p-123456",
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
	if holder.Current() == nil {
		t.Fatal("index not built")
	}
	if !strings.Contains(result.Answer, "genel olarak memnun") {
		t.Errorf("answer = %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "Test Bilgisi") {
		t.Errorf("footer missing: %q", result.Answer)
	}
	if result.TotalReviews != 6 || result.UsedChunks == 0 {
		t.Errorf("result stats = %d reviews, %d chunks", result.TotalReviews, result.UsedChunks)
	}
	if result.ProcessingTime <= 0 {
		t.Error("processing time not recorded")
	}
}

func TestAnswer_PromptCarriesRatingAverage(t *testing.T) {
	fetcher := &stubFetcher{reviews: fetcherReviews(5)} // all rated 4
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, fetcher)

	if _, err := svc.Answer(context.Background(), domain.Query{
		Question:   "Puan durumu nasıl?",
		ProductURL: "https://www.trendyol.com/marka/urun-p-123456",
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(gen.lastPrompt, "Ortalama Puan: 4.0 / 5") {
		t.Errorf("prompt missing rating average:\n%s", gen.lastPrompt)
	}
	if strings.Contains(gen.lastPrompt, "Ortalama Puan: N/A") {
		t.Error("prompt fell back to N/A despite rated reviews")
	}
}

func TestAnswer_NoURLNoIndexFails(t *testing.T) {
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, nil)

	_, err := svc.Answer(context.Background(), domain.Query{Question: "Kalite nasıl?"})
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("err = %v, want ErrEmptyIndex", err)
	}
	if gen.calls != 0 {
		t.Error("generator called despite empty index")
	}
}

func TestAnswer_NoURLReusesLastIndex(t *testing.T) {
	fetcher := &stubFetcher{reviews: fetcherReviews(4)}
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, fetcher)

	if _, err := svc.Answer(context.Background(), domain.Query{
		Question:   "İlk soru burada?",
		ProductURL: "https://www.trendyol.com/marka/urun-p-123456",
	}); err != nil {
		t.Fatalf("first answer: %v", err)
	}

	if _, err := svc.Answer(context.Background(), domain.Query{Question: "İkinci soru burada?"}); err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1 (index reuse)", fetcher.calls)
	}
}

func TestAnswer_ValidationShortCircuits(t *testing.T) {
	fetcher := &stubFetcher{reviews: fetcherReviews(2)}
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, fetcher)

	_, err := svc.Answer(context.Background(), domain.Query{
		Question:   " ",
		ProductURL: "https://www.trendyol.com/marka/urun-p-123456",
	})
	if !errors.Is(err, domain.ErrMissingQuestion) {
		t.Fatalf("err = %v, want ErrMissingQuestion", err)
	}
	if fetcher.calls != 0 {
		t.Error("fetcher ran before validation failed")
	}
}

func TestAnswer_InvalidURLRejected(t *testing.T) {
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, nil)

	_, err := svc.Answer(context.Background(), domain.Query{
		Question:   "Kalite nasıl acaba?",
		ProductURL: "https://www.amazon.com/product/123",
	})
	if !errors.Is(err, domain.ErrUnsupportedSite) {
		t.Fatalf("err = %v, want ErrUnsupportedSite", err)
	}
}

func TestAnswer_FetchFailureSurfacesAsCollaboratorError(t *testing.T) {
	fetcher := &stubFetcher{err: domain.NewCollaboratorError("fetch_reviews", errors.New("blocked"))}
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, fetcher)

	_, err := svc.Answer(context.Background(), domain.Query{
		Question:   "Kalite nasıl acaba?",
		ProductURL: "https://www.trendyol.com/marka/urun-p-123456",
	})
	var ce *domain.CollaboratorError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CollaboratorError", err)
	}
}

func TestAnswerBatch_IsolatesFailures(t *testing.T) {
	fetcher := &stubFetcher{reviews: fetcherReviews(5)}
	gen := &stubGenerator{response: generatedAnswer, failOn: 2}
	svc, _ := newTestService(gen, fetcher)

	questions := []string{
		"Birinci soru nedir?",
		"İkinci soru nedir?",
		"Üçüncü soru nedir?",
	}
	result, err := svc.AnswerBatch(context.Background(), questions,
		"https://www.trendyol.com/marka/urun-p-123456", 0)
	if err != nil {
		t.Fatalf("AnswerBatch: %v", err)
	}

	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 2/1", result.Succeeded, result.Failed)
	}
	if !result.Success {
		t.Error("aggregate success should be true with one failure")
	}
	if len(result.Results) != 3 {
		t.Fatalf("got %d results", len(result.Results))
	}
	for i, q := range questions {
		if result.Results[i].Question != q {
			t.Errorf("result %d question = %q, want %q (order)", i, result.Results[i].Question, q)
		}
	}
	if result.Results[0].Success != true || result.Results[1].Success != false || result.Results[2].Success != true {
		t.Errorf("success flags = [%v %v %v], want [true false true]",
			result.Results[0].Success, result.Results[1].Success, result.Results[2].Success)
	}
	if result.Results[1].ErrMsg == "" {
		t.Error("failed item missing error message")
	}
	if result.Results[0].Answer == nil || result.Results[2].Answer == nil {
		t.Error("successful items missing answers")
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1 (shared index per batch)", fetcher.calls)
	}
}

func TestAnswerBatch_EmptyQuestionsRejected(t *testing.T) {
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, nil)

	_, err := svc.AnswerBatch(context.Background(), nil, "", 0)
	if !errors.Is(err, domain.ErrMissingQuestions) {
		t.Fatalf("err = %v, want ErrMissingQuestions", err)
	}
}

func TestAnswerBatch_AllFailedMeansNoSuccess(t *testing.T) {
	fetcher := &stubFetcher{reviews: fetcherReviews(3)}
	gen := &stubGenerator{response: generatedAnswer}
	svc, _ := newTestService(gen, fetcher)

	if err := svc.Ingest(context.Background(), "https://www.trendyol.com/marka/urun-p-123456", 0); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	result, err := svc.AnswerBatch(context.Background(), []string{" ", "a"}, "", 0)
	if err != nil {
		t.Fatalf("AnswerBatch: %v", err)
	}
	if result.Success || result.Succeeded != 0 || result.Failed != 2 {
		t.Errorf("result = %+v, want all failed", result)
	}
}
