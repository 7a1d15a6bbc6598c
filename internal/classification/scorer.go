package classification

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// scorer matches substring patterns in one pass with an Aho-Corasick automaton and
// checks whole-word patterns against the sentence tokens.
type scorer struct {
	matcher    *ahocorasick.Matcher
	owners     [][]int // dictionary index -> category indexes
	wholeWords [][]string
	matched    []bool
}

func newScorer(categories []Category, f *folder) *scorer {
	s := &scorer{
		wholeWords: make([][]string, len(categories)),
		matched:    make([]bool, len(categories)),
	}

	dictionary := make([]string, 0)
	index := make(map[string]int)

	for ci, c := range categories {
		for _, p := range c.Patterns {
			text := f.fold(p.Text)
			if p.WholeWord {
				s.wholeWords[ci] = append(s.wholeWords[ci], strings.TrimSpace(text))
				continue
			}
			if text == "" {
				continue
			}

			// The automaton reports one index per distinct string, so shared patterns
			// are stored once and fan out to every owning category.
			di, ok := index[text]
			if !ok {
				di = len(dictionary)
				index[text] = di
				dictionary = append(dictionary, text)
				s.owners = append(s.owners, nil)
			}
			s.owners[di] = append(s.owners[di], ci)
		}
	}

	if len(dictionary) > 0 {
		s.matcher = ahocorasick.NewStringMatcher(dictionary)
	}
	return s
}

// score adds at most one point per category for the sentence.
func (s *scorer) score(sn sentence, acc []int) {
	clear(s.matched)

	if s.matcher != nil {
		for _, hit := range s.matcher.Match([]byte(sn.folded)) {
			if hit < 0 || hit >= len(s.owners) {
				continue
			}
			for _, ci := range s.owners[hit] {
				s.matched[ci] = true
			}
		}
	}

	var tokens map[string]struct{}
	for ci, words := range s.wholeWords {
		if s.matched[ci] || len(words) == 0 {
			continue
		}
		if tokens == nil {
			tokens = tokenSet(sn.folded)
		}
		for _, w := range words {
			if _, ok := tokens[w]; ok {
				s.matched[ci] = true
				break
			}
		}
	}

	for ci, hit := range s.matched {
		if hit {
			acc[ci]++
		}
	}
}

func tokenSet(folded string) map[string]struct{} {
	fields := strings.Fields(folded)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
