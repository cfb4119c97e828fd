package rag

import "strings"

// canned question suggestions surfaced by the suggestions endpoint.
var suggestions = []string{
	"Bu ürünün kalitesi nasıl?",
	"Kargo ve teslimat süreci nasıldı?",
	"Ürün beden/boyut olarak nasıl?",
	"Fiyat performans oranı nasıl?",
	"Ürünün dayanıklılığı nasıl?",
	"Renk ve görünüm beklentiyi karşılıyor mu?",
	"Kullanımı kolay mı?",
	"Bu ürünü tavsiye eder misiniz?",
}

// maxSuggestions caps how many suggestions one response carries.
const maxSuggestions = 5

// Suggest returns up to maxSuggestions canned questions containing partial
// (case-insensitive), plus the uncapped total match count. An empty partial
// matches everything.
func Suggest(partial string) ([]string, int) {
	needle := strings.ToLower(strings.TrimSpace(partial))

	var matches []string
	for _, s := range suggestions {
		if needle == "" || strings.Contains(strings.ToLower(s), needle) {
			matches = append(matches, s)
		}
	}
	total := len(matches)
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	return matches, total
}
