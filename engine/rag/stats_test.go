package rag

import (
	"testing"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

func TestStatsFromChunks(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: "Kaliteli ve güzel bir ürün, tavsiye ederim", SourceReviewIDs: []string{"r1"}},
		{Text: "Bozuk geldi, kötü paketleme", SourceReviewIDs: []string{"r2"}},
		{Text: "Paket zamanında ulaştı", SourceReviewIDs: []string{"r3"}},
	}
	ratings := map[string]int{"r1": 5, "r2": 1} // r3 unrated
	stats := StatsFromChunks(chunks, 42, ratings)

	if stats.TotalReviews != 42 {
		t.Errorf("TotalReviews = %d, want 42", stats.TotalReviews)
	}
	if stats.Positive != 1 || stats.Negative != 1 || stats.Neutral != 1 {
		t.Errorf("split = %d/%d/%d, want 1/1/1", stats.Positive, stats.Negative, stats.Neutral)
	}
	// Only the two rated reviews count toward the average.
	if stats.AverageRating != 3.0 {
		t.Errorf("AverageRating = %v, want 3.0", stats.AverageRating)
	}
}

func TestStatsFromChunks_RoundsAverage(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: "x", SourceReviewIDs: []string{"a"}},
		{Text: "y", SourceReviewIDs: []string{"b", "c"}},
	}
	stats := StatsFromChunks(chunks, 3, map[string]int{"a": 5, "b": 4, "c": 4})
	if stats.AverageRating != 4.3 {
		t.Errorf("AverageRating = %v, want 4.3", stats.AverageRating)
	}
}

func TestStatsFromChunks_CountsSharedReviewOnce(t *testing.T) {
	// Two chunks split from the same long review must not double-weight it.
	chunks := []domain.Chunk{
		{Text: "x", SourceReviewIDs: []string{"a"}},
		{Text: "y", SourceReviewIDs: []string{"a", "b"}},
	}
	stats := StatsFromChunks(chunks, 2, map[string]int{"a": 5, "b": 1})
	if stats.AverageRating != 3.0 {
		t.Errorf("AverageRating = %v, want 3.0 (5 and 1 once each)", stats.AverageRating)
	}
}

func TestStatsFromChunks_NoRatings(t *testing.T) {
	chunks := []domain.Chunk{{Text: "x", SourceReviewIDs: []string{"a"}}}
	stats := StatsFromChunks(chunks, 1, nil)
	if stats.AverageRating != 0 {
		t.Errorf("AverageRating = %v, want 0 with no ratings", stats.AverageRating)
	}
}

func TestSuggest(t *testing.T) {
	matches, total := Suggest("kalite")
	if total != 1 || len(matches) != 1 {
		t.Fatalf("got %d matches (total %d), want 1", len(matches), total)
	}
	if matches[0] != "Bu ürünün kalitesi nasıl?" {
		t.Errorf("match = %q", matches[0])
	}
}

func TestSuggest_CaseInsensitive(t *testing.T) {
	matches, _ := Suggest("KARGO")
	if len(matches) != 1 {
		t.Fatalf("got %v", matches)
	}
}

func TestSuggest_EmptyMatchesAllCappedAtFive(t *testing.T) {
	matches, total := Suggest("")
	if total != len(suggestions) {
		t.Errorf("total = %d, want %d (uncapped)", total, len(suggestions))
	}
	if len(matches) != maxSuggestions {
		t.Errorf("returned %d suggestions, cap is %d", len(matches), maxSuggestions)
	}
}

func TestSuggest_NoMatch(t *testing.T) {
	matches, total := Suggest("xyzq")
	if len(matches) != 0 || total != 0 {
		t.Errorf("got %v (total %d), want none", matches, total)
	}
}
