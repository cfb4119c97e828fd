package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/pkg/fn"
)

const (
	hepsiburadaBaseURL  = "https://user-content-gw-hermes.hepsiburada.com"
	hepsiburadaPageSize = 50
)

var hepsiburadaSKU = regexp.MustCompile(`-p-([A-Za-z0-9]+)`)

// Hepsiburada fetches reviews from Hepsiburada's user-content API.
type Hepsiburada struct {
	baseURL   string
	client    *http.Client
	log       *slog.Logger
	pageDelay time.Duration
}

// NewHepsiburada creates a Hepsiburada fetcher. baseURL overrides the
// production endpoint, mainly for tests.
func NewHepsiburada(baseURL string, log *slog.Logger) *Hepsiburada {
	if baseURL == "" {
		baseURL = hepsiburadaBaseURL
	}
	return &Hepsiburada{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
		pageDelay: 500 * time.Millisecond,
	}
}

type hepsiburadaItem struct {
	ID     int64 `json:"id"`
	Star   int   `json:"star"`
	Review struct {
		Content string `json:"content"`
	} `json:"review"`
	Customer struct {
		Name    string `json:"name"`
		Surname string `json:"surname"`
	} `json:"customer"`
}

type hepsiburadaResp struct {
	TotalItemCount int               `json:"totalItemCount"`
	Data           []hepsiburadaItem `json:"data"`
}

// FetchReviews pages through approved user content for the product SKU.
func (h *Hepsiburada) FetchReviews(ctx context.Context, req FetchRequest) ([]domain.Review, error) {
	sku, err := skuFromURL(req.URL)
	if err != nil {
		return nil, err
	}

	var reviews []domain.Review
	total := hepsiburadaPageSize // refined after the first page

	for from := 0; from < total && from/hepsiburadaPageSize < maxPages; from += hepsiburadaPageSize {
		if from > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.pageDelay):
			}
		}

		resp, err := h.fetchPage(ctx, sku, from)
		if err != nil {
			if from == 0 {
				return nil, err
			}
			h.log.Warn("hepsiburada: page fetch failed, returning partial result",
				"from", from, "collected", len(reviews), "error", err)
			break
		}
		total = resp.TotalItemCount

		for _, item := range resp.Data {
			user := strings.TrimSpace(item.Customer.Name + " " + item.Customer.Surname)
			reviews = append(reviews, domain.Review{
				ID:         fmt.Sprintf("hepsiburada-%d", item.ID),
				Text:       item.Review.Content,
				Rating:     item.Star,
				User:       user,
				SourceSite: "hepsiburada",
			})
		}
		if req.MaxReviews > 0 && len(reviews) >= req.MaxReviews {
			break
		}
		if len(resp.Data) == 0 {
			break
		}
	}

	reviews = dedupe(reviews, minReviewLen)
	if req.MaxReviews > 0 && len(reviews) > req.MaxReviews {
		reviews = reviews[:req.MaxReviews]
	}
	return reviews, nil
}

func (h *Hepsiburada) fetchPage(ctx context.Context, sku string, from int) (*hepsiburadaResp, error) {
	u := fmt.Sprintf("%s/queryapi/v2/ApprovedUserContents?skuList=%s&from=%d&size=%d",
		h.baseURL, sku, from, hepsiburadaPageSize)

	result := fn.Retry(ctx, fn.RetryOpts{
		MaxAttempts: 3,
		InitialWait: 2 * time.Second,
		MaxWait:     15 * time.Second,
		Jitter:      true,
	}, func(ctx context.Context) fn.Result[*hepsiburadaResp] {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fn.Err[*hepsiburadaResp](err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
		req.Header.Set("Accept", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			return fn.Err[*hepsiburadaResp](err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fn.Errf[*hepsiburadaResp]("http %d from %s", resp.StatusCode, u)
		}
		var decoded hepsiburadaResp
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fn.Errf[*hepsiburadaResp]("decode user content: %w", err)
		}
		return fn.Ok(&decoded)
	})

	resp, err := result.Unwrap()
	if err != nil {
		return nil, domain.NewCollaboratorError("fetch_reviews", fmt.Errorf("hepsiburada from %d: %w", from, err))
	}
	return resp, nil
}

func skuFromURL(raw string) (string, error) {
	m := hepsiburadaSKU.FindStringSubmatch(raw)
	if m == nil {
		return "", domain.NewValidationError("url", raw, domain.ErrNotProductPage)
	}
	return m[1], nil
}
