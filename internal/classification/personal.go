package classification

import (
	"strings"
	"unicode"
)

type personalDetector struct {
	trigger string
	kinship map[string]struct{}
}

func newPersonalDetector(foldedTrigger string, kinship []string, f *folder) *personalDetector {
	d := &personalDetector{
		trigger: foldedTrigger,
		kinship: make(map[string]struct{}, len(kinship)),
	}
	for _, w := range kinship {
		d.kinship[trimToken(f.fold(w))] = struct{}{}
	}
	return d
}

// score returns 1 when a kinship word sits right before or after the first trigger token.
func (d *personalDetector) score(sn sentence) int {
	tokens := strings.Split(sn.folded, " ")
	for i, tok := range tokens {
		if !strings.Contains(tok, d.trigger) {
			continue
		}
		if d.isKin(tokens, i-1) || d.isKin(tokens, i+1) {
			return 1
		}
		return 0
	}
	return 0
}

func (d *personalDetector) isKin(tokens []string, i int) bool {
	if i < 0 || i >= len(tokens) {
		return false
	}
	_, ok := d.kinship[trimToken(tokens[i])]
	return ok
}

func trimToken(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}
