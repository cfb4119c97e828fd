// Package scraper fetches product reviews from supported retail sites.
// Each site gets its own fetcher; a registry maps the scraper ID chosen by
// URL resolution to the fetcher that serves it. A NATS-backed fetcher
// delegates to a remote scraping worker over request/reply.
package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// FetchRequest asks a fetcher for up to MaxReviews reviews of the product
// behind URL.
type FetchRequest struct {
	URL        string `json:"url"`
	SiteKey    string `json:"site_key"`
	MaxReviews int    `json:"max_reviews"`
}

// ReviewFetcher retrieves reviews for a product page.
type ReviewFetcher interface {
	FetchReviews(ctx context.Context, req FetchRequest) ([]domain.Review, error)
}

// Registry maps scraper IDs to fetchers.
type Registry struct {
	fetchers map[string]ReviewFetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]ReviewFetcher)}
}

// Register binds a scraper ID to a fetcher. Later registrations win, so a
// remote fetcher can shadow a built-in one.
func (r *Registry) Register(id string, f ReviewFetcher) {
	r.fetchers[id] = f
}

// Lookup returns the fetcher for a scraper ID.
func (r *Registry) Lookup(id string) (ReviewFetcher, error) {
	f, ok := r.fetchers[id]
	if !ok {
		return nil, fmt.Errorf("scraper: no fetcher registered for %q", id)
	}
	return f, nil
}

// dedupe drops repeated and near-empty review texts, preserving order.
// Review pages repeat entries across pagination boundaries.
func dedupe(reviews []domain.Review, minLen int) []domain.Review {
	seen := make(map[string]struct{}, len(reviews))
	out := reviews[:0]
	for _, r := range reviews {
		text := strings.TrimSpace(r.Text)
		if len([]rune(text)) <= minLen {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		r.Text = text
		out = append(out, r)
	}
	return out
}
