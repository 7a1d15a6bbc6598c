// Package classification sorts post text into hero categories with keyword rules.
package classification

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"HeroScanner/internal/domain"
)

// WholeWordMarker flags a pattern that must equal a whole token.
const WholeWordMarker = "!"

// DefaultTrigger is the stem every qualifying sentence must contain.
const DefaultTrigger = "геро"

// ErrInvalidRules is returned when a keyword table fails validation.
var ErrInvalidRules = errors.New("invalid classification rules")

// Pattern is a single keyword entry.
type Pattern struct {
	Text      string
	WholeWord bool
}

// ParsePattern interprets the configured form, where a "!" marks a whole-word pattern.
func ParsePattern(raw string) Pattern {
	if strings.Contains(raw, WholeWordMarker) {
		return Pattern{
			Text:      strings.TrimSpace(strings.ReplaceAll(raw, WholeWordMarker, "")),
			WholeWord: true,
		}
	}
	return Pattern{Text: raw}
}

func (p Pattern) String() string {
	if p.WholeWord {
		return p.Text + WholeWordMarker
	}
	return p.Text
}

// Category binds a substantive classification to its patterns.
type Category struct {
	Classification domain.Classification
	Patterns       []Pattern
}

// Rules is the full keyword table. Category order is the tie-break order.
type Rules struct {
	Trigger    string
	Categories []Category
	Kinship    []string
}

type rulesFile struct {
	Trigger    string         `yaml:"trigger"`
	Categories []categoryFile `yaml:"categories"`
	Kinship    []string       `yaml:"kinship"`
}

type categoryFile struct {
	Classification string   `yaml:"classification"`
	Patterns       []string `yaml:"patterns"`
}

// DefaultRules returns the built-in keyword table.
func DefaultRules() *Rules {
	return &Rules{
		Trigger: DefaultTrigger,
		Categories: []Category{
			category(domain.Svo, "СВО!", "спецоперац", "Зеленск", "Украин", "ДНР", "ЛНР", "Артёмовск", "Бахмут"),
			category(domain.Vov, "ВОВ!", "Великая Отечественная", "1941-1945", "фашист", "вермахт", "Сталинград",
				"блокада Ленинграда", "Курская дуга", "РККА"),
			category(domain.Work, "стахановец", "ударник", "передовик производства", "соцсоревнован", "звание Герой Труда"),
			category(domain.Police, "МЧС", "полиц", "спасател", "пожарн", "скорой помощи", "розыск", "ГИБДД"),
			category(domain.Combat, "Афганск", "Чечн", "Сири", "Приднестровье", "Югослави", "миротворц"),
		},
		Kinship: []string{
			"мой", "моя", "моё", "мое", "мои", "моего", "моей",
			"наш", "наша", "наше", "наши", "нашего", "нашей",
			"родной", "родная",
			"сын", "сына", "дочь", "дочери",
			"муж", "мужа", "жена", "брат", "брата", "сестра",
			"отец", "отца", "мать", "мама", "папа",
			"дед", "деда", "дедушка", "прадед", "прадедушка", "бабушка", "внук",
		},
	}
}

func category(c domain.Classification, patterns ...string) Category {
	parsed := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		parsed = append(parsed, ParsePattern(p))
	}
	return Category{Classification: c, Patterns: parsed}
}

// LoadRules reads a YAML keyword table. An empty path yields DefaultRules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}

	return ParseRules(raw)
}

// ParseRules decodes and validates a YAML keyword table.
func ParseRules(raw []byte) (*Rules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidRules, err)
	}

	rules := &Rules{Trigger: file.Trigger, Kinship: file.Kinship}
	if rules.Trigger == "" {
		rules.Trigger = DefaultTrigger
	}

	for _, cf := range file.Categories {
		c, err := domain.ParseClassification(cf.Classification)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
		}
		rules.Categories = append(rules.Categories, category(c, cf.Patterns...))
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate checks the table is usable by the classifier.
func (r *Rules) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil rules", ErrInvalidRules)
	}
	if strings.TrimSpace(r.Trigger) == "" {
		return fmt.Errorf("%w: empty trigger", ErrInvalidRules)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidRules)
	}

	seen := make(map[domain.Classification]bool, len(r.Categories))
	for _, c := range r.Categories {
		if !c.Classification.IsSubstantive() {
			return fmt.Errorf("%w: %s cannot carry keywords", ErrInvalidRules, c.Classification)
		}
		if seen[c.Classification] {
			return fmt.Errorf("%w: duplicate category %s", ErrInvalidRules, c.Classification)
		}
		seen[c.Classification] = true

		if len(c.Patterns) == 0 {
			return fmt.Errorf("%w: category %s has no patterns", ErrInvalidRules, c.Classification)
		}
		for _, p := range c.Patterns {
			if strings.TrimSpace(p.Text) == "" {
				return fmt.Errorf("%w: empty pattern in %s", ErrInvalidRules, c.Classification)
			}
		}
	}

	for _, w := range r.Kinship {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("%w: empty kinship word", ErrInvalidRules)
		}
	}

	return nil
}
