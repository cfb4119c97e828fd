package rag

import (
	"strings"
	"unicode"
)

// Section labels the generator is prompted to emit. Matching is
// case-insensitive after decoration stripping.
const (
	labelEvaluation = "genel değerlendirme"
	labelTestInfo   = "test bilgisi"
	labelConclusion = "sonuç"
)

type scanState int

const (
	stateSeeking scanState = iota
	stateInEvaluation
	stateInTestInfo
	stateDone
)

// ExtractAnswer scans generator output line by line and assembles the final
// answer from the evaluation section plus an optional test-info section; the
// conclusion section and everything after it is discarded. When no
// evaluation label is found, the whole decoration-stripped text is returned
// and fellBack is true.
//
// Inside the evaluation section a blank line closes the section. A stray
// blank line mid-paragraph therefore truncates the answer; this matches the
// long-standing scanner behavior and downstream formatting relies on it, so
// it is kept as is.
func ExtractAnswer(raw string) (answer string, fellBack bool) {
	var evaluation, testInfo []string
	state := stateSeeking

	for _, line := range strings.Split(raw, "\n") {
		if state == stateDone {
			break
		}
		stripped := stripDecorations(line)

		if _, ok := matchLabel(stripped, labelConclusion); ok {
			state = stateDone
			continue
		}
		if rest, ok := matchLabel(stripped, labelEvaluation); ok {
			state = stateInEvaluation
			if rest != "" {
				evaluation = append(evaluation, rest)
			}
			continue
		}
		if rest, ok := matchLabel(stripped, labelTestInfo); ok {
			state = stateInTestInfo
			if rest != "" {
				testInfo = append(testInfo, rest)
			}
			continue
		}

		switch state {
		case stateInEvaluation:
			if stripped == "" {
				state = stateSeeking
				continue
			}
			evaluation = append(evaluation, stripped)
		case stateInTestInfo:
			if stripped == "" {
				continue
			}
			testInfo = append(testInfo, stripped)
		}
	}

	eval := strings.TrimSpace(strings.Join(evaluation, "\n"))
	test := strings.TrimSpace(strings.Join(testInfo, "\n"))

	if eval == "" {
		return strings.TrimSpace(stripAll(raw)), true
	}
	if test != "" {
		return eval + "\n\n" + test, false
	}
	return eval, false
}

// matchLabel reports whether line starts with the (lowercase) label as a
// whole word. rest is the text following the label with any separator
// removed.
func matchLabel(line, label string) (rest string, ok bool) {
	lr := []rune(line)
	lb := []rune(label)
	if len(lr) < len(lb) {
		return "", false
	}
	for i, r := range lb {
		if unicode.ToLower(lr[i]) != r {
			return "", false
		}
	}
	if len(lr) > len(lb) && unicode.IsLetter(lr[len(lb)]) {
		return "", false
	}
	rest = strings.TrimLeft(string(lr[len(lb):]), ": \t")
	return strings.TrimSpace(rest), true
}

// stripDecorations drops markdown emphasis and heading characters and trims
// leading bullets, dashes and emoji so label matching sees bare text.
func stripDecorations(line string) string {
	var b strings.Builder
	for _, r := range line {
		switch r {
		case '*', '_', '#':
			continue
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(b.String())
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return r == '-' || r == '•' || r == '–' || r == '—' || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
	return strings.TrimSpace(s)
}

func stripAll(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = stripDecorations(l)
	}
	return strings.Join(out, "\n")
}
