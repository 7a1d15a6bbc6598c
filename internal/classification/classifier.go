package classification

import (
	"fmt"

	"HeroScanner/internal/domain"
)

// Decision explains how a text was classified.
type Decision struct {
	Classification domain.Classification         `json:"classification"`
	Qualifying     int                           `json:"qualifyingSentences"`
	ResolvedAt     int                           `json:"resolvedAt"`
	Sentence       string                        `json:"sentence,omitempty"`
	Scores         map[domain.Classification]int `json:"scores"`
}

// Classifier scores record text against a keyword table.
// A Classifier is not safe for concurrent use; create one per goroutine.
type Classifier struct {
	rules    *Rules
	folder   *folder
	trigger  string
	scorer   *scorer
	personal *personalDetector
}

// New validates rules and prepares the matchers.
func New(rules *Rules) (*Classifier, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	f := newFolder()
	trigger := f.fold(rules.Trigger)

	return &Classifier{
		rules:    rules,
		folder:   f,
		trigger:  trigger,
		scorer:   newScorer(rules.Categories, f),
		personal: newPersonalDetector(trigger, rules.Kinship, f),
	}, nil
}

// MustNew is New for tables known to be valid.
func MustNew(rules *Rules) *Classifier {
	c, err := New(rules)
	if err != nil {
		panic(fmt.Sprintf("classification: %v", err))
	}
	return c
}

// Classify returns the final classification for text.
func (c *Classifier) Classify(text string) domain.Classification {
	return c.Explain(text).Classification
}

// Explain classifies text and reports the scores at the point of decision.
func (c *Classifier) Explain(text string) Decision {
	sentences := c.folder.segment(text, c.trigger)
	if len(sentences) == 0 {
		return Decision{Classification: domain.NoHero, ResolvedAt: -1}
	}

	scores := make([]int, len(c.rules.Categories))
	personal := 0

	for i, sn := range sentences {
		c.scorer.score(sn, scores)
		personal += c.personal.score(sn)

		if result, ok := resolve(c.rules.Categories, scores, personal); ok {
			return Decision{
				Classification: result,
				Qualifying:     len(sentences),
				ResolvedAt:     i,
				Sentence:       sn.text,
				Scores:         c.scoreMap(scores, personal),
			}
		}
	}

	return Decision{
		Classification: domain.Unmarked,
		Qualifying:     len(sentences),
		ResolvedAt:     -1,
		Scores:         c.scoreMap(scores, personal),
	}
}

func (c *Classifier) scoreMap(scores []int, personal int) map[domain.Classification]int {
	m := make(map[domain.Classification]int, len(scores)+1)
	for i, v := range scores {
		m[c.rules.Categories[i].Classification] = v
	}
	m[domain.Personal] = personal
	return m
}

// Trigger returns the configured trigger stem as written in the rules.
func (c *Classifier) Trigger() string {
	return c.rules.Trigger
}
