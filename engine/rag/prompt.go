package rag

import (
	"fmt"
	"strings"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/engine/semantic"
)

// BuildPrompt renders the Turkish generation prompt: product statistics,
// numbered review excerpts, then the task rules the section extractor
// depends on. The generator is told to answer under a "Genel Değerlendirme"
// heading with a closing "Sonuç"; extraction keys off those labels.
func BuildPrompt(question string, hits []semantic.Hit, stats domain.ProductStats) string {
	var context strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&context, "%d. %s\n", i+1, h.Chunk.Text)
	}

	avg := "N/A"
	if stats.AverageRating > 0 {
		avg = fmt.Sprintf("%.1f", stats.AverageRating)
	}

	var b strings.Builder
	b.WriteString("Sen, e-ticaret sitelerindeki ürün yorumlarını analiz eden uzman bir yapay zeka asistanısın. ")
	b.WriteString("Görevin, kullanıcı yorumlarını analiz ederek kısa ve öz bir genel değerlendirme sunmaktır.\n\n")
	b.WriteString("**ÜRÜNÜN GENEL PUAN DURUMU:**\n")
	fmt.Fprintf(&b, "- Ortalama Puan: %s / 5\n", avg)
	fmt.Fprintf(&b, "- Toplam Değerlendirme Sayısı: %d\n", stats.TotalReviews)
	fmt.Fprintf(&b, "- Pozitif Yorumlar: %d\n", stats.Positive)
	fmt.Fprintf(&b, "- Negatif Yorumlar: %d\n\n", stats.Negative)
	b.WriteString("**KULLANICI YORUMLARI:**\n")
	b.WriteString(context.String())
	fmt.Fprintf(&b, "\n**TOPLAM YORUM SAYISI:** %d adet yorum bulunmaktadır.\n\n", len(hits))
	b.WriteString("--- GÖREV ve KURALLAR ---\n")
	b.WriteString("1. **Sadece Sağlanan Bilgiyi Kullan:** Cevabını SADECE yukarıdaki bilgilere dayandır.\n")
	b.WriteString("2. **Kısa ve Öz Ol:** Maksimum 3-4 paragraf yaz.\n")
	b.WriteString("3. **Dengeli Bakış Açısı:** Hem olumlu hem olumsuz yönleri kısaca belirt.\n")
	b.WriteString("4. **Genel Değerlendirme Formatı:**\n")
	b.WriteString("    - **Genel Değerlendirme:** Yorumların genel havasını özetleyen kısa bir paragraf (olumlu/olumsuz yönler dahil).\n")
	b.WriteString("    - **Sonuç:** Kısa bir tavsiye veya özet.\n")
	b.WriteString("5. **Gereksiz Detaylardan Kaçın:** Uzun listeler ve çok fazla alıntı yapma.\n")
	b.WriteString("-----------------------------------\n\n")
	fmt.Fprintf(&b, "**KULLANICININ SORUSU:** %s\n\n", question)
	b.WriteString("**GENEL DEĞERLENDİRME (Kısa ve öz, Türkçe):**")
	return b.String()
}

// FooterNote appends the analysis provenance line shown under every answer.
func FooterNote(answer string, usedChunks, totalChunks int) string {
	return fmt.Sprintf("%s\n\n---\n📊 **Test Bilgisi**: Bu analiz %d/%d yorumdan oluşturulmuştur.",
		answer, usedChunks, totalChunks)
}
