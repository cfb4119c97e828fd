// Package ingest turns raw reviews into embedded, indexed chunks. The
// chunker is deterministic: the same review list always produces the same
// chunk sequence, so index rebuilds are reproducible.
package ingest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

const (
	// DefaultMaxChunkLen is the maximum chunk length in runes.
	DefaultMaxChunkLen = 200
	// DefaultMinReviewLen is the threshold below which a review is merged
	// with its neighbors instead of forming chunks on its own.
	DefaultMinReviewLen = 40
)

// chunkNamespace seeds deterministic chunk IDs. Same text at the same
// position always yields the same ID across rebuilds.
var chunkNamespace = uuid.MustParse("7f6c2e1a-9b3d-4c58-8a21-d4e0f5b7c936")

// ChunkerOpts tunes chunk sizing. Zero values fall back to defaults.
type ChunkerOpts struct {
	MaxChunkLen  int
	MinReviewLen int
}

// ChunkReviews splits reviews into retrieval chunks. Reviews shorter than
// MinReviewLen are merged with adjacent reviews; text longer than MaxChunkLen
// is split at sentence boundaries, falling back to whitespace, never inside
// a word. Empty reviews are skipped. Each chunk records the IDs of every
// review that contributed to it.
func ChunkReviews(reviews []domain.Review, opts ChunkerOpts) []domain.Chunk {
	maxLen := opts.MaxChunkLen
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLen
	}
	minLen := opts.MinReviewLen
	if minLen < 0 {
		minLen = DefaultMinReviewLen
	}

	var chunks []domain.Chunk

	// Group adjacent reviews until the combined text reaches the merge
	// threshold, then chunk the group as one unit.
	var groupText strings.Builder
	var groupIDs []string

	flush := func() {
		if groupText.Len() == 0 {
			return
		}
		ids := make([]string, len(groupIDs))
		copy(ids, groupIDs)
		for _, text := range splitText(groupText.String(), maxLen) {
			seq := len(chunks)
			chunks = append(chunks, domain.Chunk{
				ID:              chunkID(text, seq),
				Text:            text,
				SourceReviewIDs: ids,
				Seq:             seq,
			})
		}
		groupText.Reset()
		groupIDs = groupIDs[:0]
	}

	for _, rev := range reviews {
		text := strings.TrimSpace(rev.Text)
		if text == "" {
			continue
		}
		if groupText.Len() > 0 {
			groupText.WriteByte(' ')
		}
		groupText.WriteString(text)
		groupIDs = append(groupIDs, rev.ID)
		if utf8.RuneCountInString(groupText.String()) >= minLen {
			flush()
		}
	}
	// A trailing short group still becomes a chunk rather than being dropped.
	flush()

	return chunks
}

func chunkID(text string, seq int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%d:%s", seq, text))).String()
}

// splitText packs sentences into spans of at most maxLen runes. Sentences
// longer than maxLen are split at whitespace; a single word longer than
// maxLen becomes its own span rather than being cut mid-word.
func splitText(text string, maxLen int) []string {
	var out []string
	var buf strings.Builder
	bufRunes := 0

	emit := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
		bufRunes = 0
	}

	for _, sentence := range splitSentences(text) {
		for _, piece := range splitLong(sentence, maxLen) {
			n := utf8.RuneCountInString(piece)
			if bufRunes > 0 && bufRunes+1+n > maxLen {
				emit()
			}
			if bufRunes > 0 {
				buf.WriteByte(' ')
				bufRunes++
			}
			buf.WriteString(piece)
			bufRunes += n
		}
	}
	emit()
	return out
}

// splitSentences splits on sentence-ending punctuation followed by a space.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') &&
			(i == len(runes)-1 || unicode.IsSpace(runes[i+1])) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitLong breaks a sentence that exceeds maxLen into word-aligned pieces.
func splitLong(sentence string, maxLen int) []string {
	if utf8.RuneCountInString(sentence) <= maxLen {
		return []string{sentence}
	}
	var pieces []string
	var buf strings.Builder
	bufRunes := 0

	for _, word := range strings.Fields(sentence) {
		n := utf8.RuneCountInString(word)
		if bufRunes > 0 && bufRunes+1+n > maxLen {
			pieces = append(pieces, buf.String())
			buf.Reset()
			bufRunes = 0
		}
		if bufRunes > 0 {
			buf.WriteByte(' ')
			bufRunes++
		}
		buf.WriteString(word)
		bufRunes += n
	}
	if buf.Len() > 0 {
		pieces = append(pieces, buf.String())
	}
	return pieces
}
