// Package sites classifies product URLs against the static table of supported
// e-commerce sites. Resolution is a pure function of the URL and the table:
// a domain match selects the site, then the site's product-path patterns
// decide whether the URL points at an actual product page.
package sites

import (
	"regexp"
	"strings"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// Site describes one supported e-commerce site.
type Site struct {
	Key  string
	Name string
	// Domains lists accepted domains, canonical first.
	Domains []string
	// productPatterns characterize a genuine product page path, e.g. the
	// "-p-<id>" marker segment Trendyol puts before the numeric product id.
	productPatterns []*regexp.Regexp
	// ScraperID names the fetcher implementation for this site.
	ScraperID  string
	ExampleURL string
}

// supported is the static site table. Order matters: the first site whose
// domain substring matches wins.
var supported = []Site{
	{
		Key:     "trendyol",
		Name:    "Trendyol",
		Domains: []string{"trendyol.com", "trendyol.com.tr"},
		productPatterns: []*regexp.Regexp{
			regexp.MustCompile(`-p-\d+`),
			regexp.MustCompile(`/p-\d+`),
		},
		ScraperID:  "trendyol",
		ExampleURL: "https://www.trendyol.com/marka/urun-adi-p-123456",
	},
	{
		Key:     "hepsiburada",
		Name:    "Hepsiburada",
		Domains: []string{"hepsiburada.com", "hepsiburada.com.tr"},
		productPatterns: []*regexp.Regexp{
			regexp.MustCompile(`-p-[A-Za-z0-9]+`),
			regexp.MustCompile(`/p-[A-Za-z0-9]+`),
		},
		ScraperID:  "hepsiburada",
		ExampleURL: "https://www.hepsiburada.com/urun-adi-p-HBC00001ABCDE",
	},
}

// Resolution is the outcome of validating a URL.
type Resolution struct {
	Valid     bool   `json:"valid"`
	SiteName  string `json:"site,omitempty"`
	ScraperID string `json:"-"`
	Reason    string `json:"reason,omitempty"`
}

// Names returns the display names of all supported sites.
func Names() []string {
	out := make([]string, len(supported))
	for i, s := range supported {
		out[i] = s.Name
	}
	return out
}

// All returns the supported site table for listing endpoints.
func All() []Site { return supported }

// normalize trims, lowercases, and prepends https:// when the scheme is missing.
func normalize(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

// detect returns the first configured site whose domain appears in the URL.
func detect(url string) *Site {
	for i := range supported {
		for _, d := range supported[i].Domains {
			if strings.Contains(url, d) {
				return &supported[i]
			}
		}
	}
	return nil
}

// Resolve validates a product URL. Unknown domains are rejected as
// "unsupported site"; a domain match whose path matches none of the site's
// product patterns is rejected as "not a product page".
func Resolve(raw string) (Resolution, error) {
	url := normalize(raw)
	if url == "" {
		return Resolution{Valid: false, Reason: domain.ErrMissingURL.Error()},
			domain.NewValidationError("url", raw, domain.ErrMissingURL)
	}

	site := detect(url)
	if site == nil {
		return Resolution{Valid: false, Reason: domain.ErrUnsupportedSite.Error()},
			&domain.SiteError{URL: url, SupportedSites: Names(), Wrapped: domain.ErrUnsupportedSite}
	}

	for _, pat := range site.productPatterns {
		if pat.MatchString(url) {
			return Resolution{Valid: true, SiteName: site.Name, ScraperID: site.ScraperID}, nil
		}
	}
	return Resolution{Valid: false, SiteName: site.Name, Reason: domain.ErrNotProductPage.Error()},
		&domain.SiteError{URL: url, SupportedSites: Names(), Wrapped: domain.ErrNotProductPage}
}
