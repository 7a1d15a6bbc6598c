package classification

import (
	"testing"

	"HeroScanner/internal/domain"
)

func TestClassifyScenarios(t *testing.T) {
	t.Parallel()

	c := MustNew(DefaultRules())

	tests := []struct {
		name string
		text string
		want domain.Classification
	}{
		{name: "category substring", text: "Он герой спецоперации.", want: domain.Svo},
		{name: "category beats personal on tie", text: "Мой брат герой СВО.", want: domain.Svo},
		{name: "qualifying but unmatched", text: "Просто текст без героя.", want: domain.Unmarked},
		{name: "no trigger", text: "Сегодня хорошая погода.", want: domain.NoHero},
		{name: "empty text", text: "", want: domain.NoHero},
		{name: "only delimiters", text: "..\n\t.", want: domain.NoHero},
		{name: "personal only", text: "Наш дедушка настоящий герой", want: domain.Unmarked},
		{name: "personal before trigger", text: "Мой отец герой", want: domain.Personal},
		{name: "personal after trigger", text: "Герой мой, спасибо", want: domain.Personal},
		{name: "personal trims punctuation", text: "Спасибо, брат, герой", want: domain.Personal},
		{name: "case insensitive trigger", text: "ГЕРОИ ВОВ", want: domain.Vov},
		{name: "police", text: "Сотрудник полиции оказался героем", want: domain.Police},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.text); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassifyNoTriggerInSentenceIgnored(t *testing.T) {
	t.Parallel()

	c := MustNew(DefaultRules())

	// The category keyword lives in a sentence without the trigger, so it never scores.
	got := c.Classify("Бахмут был освобождён. Просто герой")
	if got != domain.Unmarked {
		t.Fatalf("expected unmarked, got %s", got)
	}
}

func TestClassifyFirstResolvingSentenceWins(t *testing.T) {
	t.Parallel()

	c := MustNew(DefaultRules())

	text := "Герой афганской войны. Герой спецоперации на Украине. Герой СВО"
	d := c.Explain(text)
	if d.Classification != domain.Combat {
		t.Fatalf("expected combat from the first sentence, got %s", d.Classification)
	}
	if d.ResolvedAt != 0 {
		t.Fatalf("expected resolution at sentence 0, got %d", d.ResolvedAt)
	}
	if d.Qualifying != 3 {
		t.Fatalf("expected 3 qualifying sentences, got %d", d.Qualifying)
	}
}

func TestClassifyScoresAccumulateAcrossSentences(t *testing.T) {
	t.Parallel()

	rules := &Rules{
		Trigger: "геро",
		Categories: []Category{
			category(domain.Svo, "спецоперац"),
		},
		Kinship: []string{"мой"},
	}
	c := MustNew(rules)

	// Sentence one: personal 1, svo 0 -> Personal resolves immediately.
	d := c.Explain("Мой герой. Герой спецоперации")
	if d.Classification != domain.Personal || d.ResolvedAt != 0 {
		t.Fatalf("expected personal at 0, got %s at %d", d.Classification, d.ResolvedAt)
	}

	// Sentence one scores nothing; sentence two resolves.
	d = c.Explain("Просто герой. Герой спецоперации")
	if d.Classification != domain.Svo || d.ResolvedAt != 1 {
		t.Fatalf("expected svo at 1, got %s at %d", d.Classification, d.ResolvedAt)
	}
	if d.Scores[domain.Svo] != 1 || d.Scores[domain.Personal] != 0 {
		t.Fatalf("unexpected scores %v", d.Scores)
	}
}

func TestClassifyCategoryTieGoesToFirstDeclared(t *testing.T) {
	t.Parallel()

	rules := &Rules{
		Trigger: "геро",
		Categories: []Category{
			category(domain.Police, "пожарн"),
			category(domain.Svo, "спецоперац"),
		},
	}
	c := MustNew(rules)

	if got := c.Classify("Пожарный герой спецоперации"); got != domain.Police {
		t.Fatalf("expected first declared category police, got %s", got)
	}
}

func TestClassifyOneIncrementPerCategoryPerSentence(t *testing.T) {
	t.Parallel()

	rules := &Rules{
		Trigger: "геро",
		Categories: []Category{
			category(domain.Svo, "спецоперац", "Бахмут", "СВО!"),
		},
	}
	c := MustNew(rules)

	d := c.Explain("Герой спецоперации Бахмут СВО")
	if d.Scores[domain.Svo] != 1 {
		t.Fatalf("expected a single increment, got %d", d.Scores[domain.Svo])
	}
}

func TestWholeWordRequiresExactToken(t *testing.T) {
	t.Parallel()

	rules := &Rules{
		Trigger: "геро",
		Categories: []Category{
			category(domain.Svo, "СВО!"),
		},
	}
	c := MustNew(rules)

	tests := []struct {
		text string
		want domain.Classification
	}{
		{text: "герой СВО", want: domain.Svo},
		{text: "герой сво", want: domain.Svo},
		{text: "герой  СВО ", want: domain.Svo},
		{text: "герой свой", want: domain.Unmarked},
		{text: "героСВОй", want: domain.Unmarked},
		{text: "герой СВО,", want: domain.Unmarked},
	}

	for _, tc := range tests {
		if got := c.Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestSharedPatternScoresEveryOwner(t *testing.T) {
	t.Parallel()

	rules := &Rules{
		Trigger: "геро",
		Categories: []Category{
			category(domain.Vov, "фронт"),
			category(domain.Svo, "фронт", "спецоперац"),
		},
	}
	c := MustNew(rules)

	d := c.Explain("Герой фронта")
	if d.Scores[domain.Vov] != 1 || d.Scores[domain.Svo] != 1 {
		t.Fatalf("expected both owners scored, got %v", d.Scores)
	}
	if d.Classification != domain.Vov {
		t.Fatalf("expected first declared vov, got %s", d.Classification)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	a := MustNew(DefaultRules())
	b := MustNew(DefaultRules())

	texts := []string{
		"Он герой спецоперации.",
		"Мой брат герой СВО.",
		"Герои Сталинграда. Наш дед герой",
		"Просто текст без героя.",
		"Сегодня хорошая погода.",
	}
	for _, text := range texts {
		first := a.Classify(text)
		for i := 0; i < 3; i++ {
			if got := a.Classify(text); got != first {
				t.Fatalf("repeat classification of %q changed: %s vs %s", text, got, first)
			}
		}
		if got := b.Classify(text); got != first {
			t.Fatalf("independent classifier disagrees on %q: %s vs %s", text, got, first)
		}
	}
}

func TestNewRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	if _, err := New(&Rules{Trigger: "геро"}); err == nil {
		t.Fatalf("expected error for rules without categories")
	}
}
