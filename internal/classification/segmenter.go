package classification

import (
	"strings"

	"golang.org/x/text/cases"
)

// sentence keeps the original text next to its case-folded form.
type sentence struct {
	text   string
	folded string
}

// folder wraps a Caser, which is stateful and must not be shared across goroutines.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Fold()}
}

func (f *folder) fold(s string) string {
	return f.caser.String(s)
}

func isSentenceBreak(r rune) bool {
	return r == '\t' || r == '\n' || r == '.'
}

// segment splits text into sentences and keeps the ones containing the folded trigger.
func (f *folder) segment(text, foldedTrigger string) []sentence {
	parts := strings.FieldsFunc(text, isSentenceBreak)

	qualifying := make([]sentence, 0, len(parts))
	for _, part := range parts {
		folded := f.fold(part)
		if strings.Contains(folded, foldedTrigger) {
			qualifying = append(qualifying, sentence{text: part, folded: folded})
		}
	}
	return qualifying
}
