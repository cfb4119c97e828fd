// Package rag answers product questions from retrieved review chunks. It
// owns prompt construction, answer-section extraction, the per-question
// orchestrator and the sequential batch coordinator.
package rag

import (
	"math"
	"strings"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// Keyword lists for coarse sentiment counting over Turkish review text.
var (
	positiveWords = []string{"güzel", "iyi", "beğendim", "memnun", "kaliteli", "tavsiye", "harika", "mükemmel"}
	negativeWords = []string{"kötü", "berbat", "memnun değil", "kırık", "bozuk", "iade"}
)

// StatsFromChunks derives the rating picture fed into the generation prompt:
// sentiment counts over the chunk texts, and the average star rating of the
// distinct reviews the chunks reference. ratings maps review ID to rating
// (the index carries it); unrated reviews do not count toward the average.
func StatsFromChunks(chunks []domain.Chunk, totalReviews int, ratings map[string]int) domain.ProductStats {
	stats := domain.ProductStats{TotalReviews: totalReviews}

	seen := make(map[string]bool)
	ratingSum, ratingCount := 0, 0
	for _, c := range chunks {
		classify(c.Text, &stats)
		for _, id := range c.SourceReviewIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if r := ratings[id]; r > 0 {
				ratingSum += r
				ratingCount++
			}
		}
	}
	if ratingCount > 0 {
		stats.AverageRating = math.Round(float64(ratingSum)/float64(ratingCount)*10) / 10
	}
	return stats
}

func classify(text string, stats *domain.ProductStats) {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	switch {
	case pos > neg:
		stats.Positive++
	case neg > pos:
		stats.Negative++
	default:
		stats.Neutral++
	}
}
