package sites

import (
	"errors"
	"testing"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

func TestResolve_UnknownDomain(t *testing.T) {
	urls := []string{
		"https://www.amazon.com/dp/B0ABCDEF",
		"https://example.org/some/page",
		"ftp-looking.nonsense/x",
	}
	for _, u := range urls {
		res, err := Resolve(u)
		if res.Valid {
			t.Errorf("Resolve(%q): expected invalid", u)
		}
		if res.Reason != "unsupported site" {
			t.Errorf("Resolve(%q): reason = %q, want %q", u, res.Reason, "unsupported site")
		}
		if !errors.Is(err, domain.ErrUnsupportedSite) {
			t.Errorf("Resolve(%q): error = %v, want ErrUnsupportedSite", u, err)
		}
		var se *domain.SiteError
		if !errors.As(err, &se) || len(se.SupportedSites) == 0 {
			t.Errorf("Resolve(%q): expected SiteError with supported site list", u)
		}
	}
}

func TestResolve_DomainMatchButNotProductPage(t *testing.T) {
	res, err := Resolve("https://www.trendyol.com/anasayfa")
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if res.Reason != "not a product page" {
		t.Errorf("reason = %q, want %q", res.Reason, "not a product page")
	}
	if res.SiteName != "Trendyol" {
		t.Errorf("site = %q, want Trendyol", res.SiteName)
	}
	if !errors.Is(err, domain.ErrNotProductPage) {
		t.Errorf("error = %v, want ErrNotProductPage", err)
	}
}

func TestResolve_ValidProductPages(t *testing.T) {
	cases := []struct {
		url  string
		site string
	}{
		{"https://www.trendyol.com/brand/x-p-123456", "Trendyol"},
		{"www.trendyol.com/marka/pamuklu-tisort-p-7654321", "Trendyol"},
		{"https://www.hepsiburada.com/telefon-p-HBC00001ABCDE", "Hepsiburada"},
		{"  HTTPS://WWW.TRENDYOL.COM/a/b-p-42  ", "Trendyol"},
	}
	for _, c := range cases {
		res, err := Resolve(c.url)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error: %v", c.url, err)
			continue
		}
		if !res.Valid {
			t.Errorf("Resolve(%q): expected valid", c.url)
		}
		if res.SiteName != c.site {
			t.Errorf("Resolve(%q): site = %q, want %q", c.url, res.SiteName, c.site)
		}
		if res.ScraperID == "" {
			t.Errorf("Resolve(%q): missing scraper id", c.url)
		}
	}
}

func TestResolve_EmptyURL(t *testing.T) {
	_, err := Resolve("   ")
	if !errors.Is(err, domain.ErrMissingURL) {
		t.Errorf("error = %v, want ErrMissingURL", err)
	}
}

func TestResolve_SchemeAdded(t *testing.T) {
	res, err := Resolve("trendyol.com/x-p-99")
	if err != nil || !res.Valid {
		t.Fatalf("expected valid after scheme normalization, got %v / %v", res, err)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 supported sites, got %d", len(names))
	}
	if names[0] != "Trendyol" || names[1] != "Hepsiburada" {
		t.Errorf("unexpected site order: %v", names)
	}
}
