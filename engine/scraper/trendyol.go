package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/pkg/fn"
)

const (
	trendyolBaseURL = "https://apigw.trendyol.com"
	// minReviewLen filters out decorative snippets the review API returns
	// alongside real comments.
	minReviewLen = 10
	maxPages     = 10
)

// Trendyol fetches reviews page by page from Trendyol's public review API.
type Trendyol struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
	// delay between page requests, to stay polite with the API
	pageDelay time.Duration
}

// NewTrendyol creates a Trendyol fetcher. baseURL overrides the production
// endpoint, mainly for tests.
func NewTrendyol(baseURL string, log *slog.Logger) *Trendyol {
	if baseURL == "" {
		baseURL = trendyolBaseURL
	}
	return &Trendyol{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
		pageDelay: 500 * time.Millisecond,
	}
}

type trendyolReview struct {
	ID           int64  `json:"id"`
	Comment      string `json:"comment"`
	Rating       int    `json:"rate"`
	UserFullName string `json:"userFullName"`
}

type trendyolReviewsResp struct {
	IsSuccess bool `json:"isSuccess"`
	Result    struct {
		ProductReviews struct {
			TotalPages int              `json:"totalPages"`
			Reviews    []trendyolReview `json:"reviews"`
		} `json:"productReviews"`
	} `json:"result"`
}

// FetchReviews pages through the review API until MaxReviews reviews are
// collected or pages run out. Duplicate comments across pages are dropped.
func (t *Trendyol) FetchReviews(ctx context.Context, req FetchRequest) ([]domain.Review, error) {
	slug, merchantID, err := productInfo(req.URL)
	if err != nil {
		return nil, err
	}

	var reviews []domain.Review
	totalPages := 1

	for page := 0; page < totalPages && page < maxPages; page++ {
		if page > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.pageDelay):
			}
		}

		resp, err := t.fetchPage(ctx, slug, merchantID, page)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			// Partial result is better than none once we have pages.
			t.log.Warn("trendyol: page fetch failed, returning partial result",
				"page", page, "collected", len(reviews), "error", err)
			break
		}

		if page == 0 {
			totalPages = resp.Result.ProductReviews.TotalPages
		}
		for _, r := range resp.Result.ProductReviews.Reviews {
			reviews = append(reviews, domain.Review{
				ID:         fmt.Sprintf("trendyol-%d", r.ID),
				Text:       r.Comment,
				Rating:     r.Rating,
				User:       r.UserFullName,
				SourceSite: "trendyol",
			})
		}
		if req.MaxReviews > 0 && len(reviews) >= req.MaxReviews {
			break
		}
		if len(resp.Result.ProductReviews.Reviews) == 0 {
			break
		}
	}

	reviews = dedupe(reviews, minReviewLen)
	if req.MaxReviews > 0 && len(reviews) > req.MaxReviews {
		reviews = reviews[:req.MaxReviews]
	}
	return reviews, nil
}

func (t *Trendyol) fetchPage(ctx context.Context, slug, merchantID string, page int) (*trendyolReviewsResp, error) {
	u := fmt.Sprintf("%s/discovery-web-socialgw-service/reviews/%s/yorumlar?merchantId=%s&page=%d&culture=tr-TR&storefrontId=1",
		t.baseURL, slug, merchantID, page)

	result := fn.Retry(ctx, fn.RetryOpts{
		MaxAttempts: 3,
		InitialWait: 2 * time.Second,
		MaxWait:     15 * time.Second,
		Jitter:      true,
	}, func(ctx context.Context) fn.Result[*trendyolReviewsResp] {
		return t.doGet(ctx, u)
	})

	resp, err := result.Unwrap()
	if err != nil {
		return nil, domain.NewCollaboratorError("fetch_reviews", fmt.Errorf("trendyol page %d: %w", page, err))
	}
	return resp, nil
}

func (t *Trendyol) doGet(ctx context.Context, u string) fn.Result[*trendyolReviewsResp] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fn.Err[*trendyolReviewsResp](err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.trendyol.com/")

	resp, err := t.client.Do(req)
	if err != nil {
		return fn.Err[*trendyolReviewsResp](err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fn.Errf[*trendyolReviewsResp]("http %d from %s", resp.StatusCode, u)
	}

	var decoded trendyolReviewsResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fn.Errf[*trendyolReviewsResp]("decode reviews: %w", err)
	}
	if !decoded.IsSuccess {
		return fn.Errf[*trendyolReviewsResp]("review api reported failure")
	}
	return fn.Ok(&decoded)
}

// productInfo extracts the product slug and merchant ID from a Trendyol
// product URL. The slug is the URL path; merchantId comes from the query.
func productInfo(raw string) (slug, merchantID string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", domain.NewValidationError("url", raw, err)
	}
	slug = strings.Trim(u.Path, "/")
	if slug == "" {
		return "", "", domain.NewValidationError("url", raw, domain.ErrNotProductPage)
	}
	merchantID = u.Query().Get("merchantId")
	return slug, merchantID, nil
}
