package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownClassification is returned when a stored value is outside the closed enum.
var ErrUnknownClassification = errors.New("unknown classification")

// Classification is the category assigned to a record.
type Classification int16

const (
	// Unclassified is the sentinel for records no run has processed yet.
	Unclassified Classification = 0
	Svo          Classification = 1
	Vov          Classification = 2
	Work         Classification = 3
	Police       Classification = 4
	Combat       Classification = 5
	// Personal marks kinship or possessive context around the trigger word.
	Personal Classification = 6
	// Unmarked means the record was processed but no rule fired.
	Unmarked Classification = 7
	// NoHero means the trigger substring is absent from the text.
	NoHero Classification = 8
)

var classificationNames = map[Classification]string{
	Unclassified: "unclassified",
	Svo:          "svo",
	Vov:          "vov",
	Work:         "work",
	Police:       "police",
	Combat:       "combat",
	Personal:     "personal",
	Unmarked:     "unmarked",
	NoHero:       "no_hero",
}

// Substantive lists the keyword-driven categories in declaration order.
func Substantive() []Classification {
	return []Classification{Svo, Vov, Work, Police, Combat}
}

// Counted lists the classifications reported by analytics counts.
func Counted() []Classification {
	return []Classification{Svo, Vov, Work, Police, Combat, Personal, Unmarked}
}

// Valid reports whether c belongs to the enum.
func (c Classification) Valid() bool {
	_, ok := classificationNames[c]
	return ok
}

// IsSubstantive reports whether c is a keyword-driven category.
func (c Classification) IsSubstantive() bool {
	return c >= Svo && c <= Combat
}

func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return "classification(" + strconv.Itoa(int(c)) + ")"
}

// ParseClassification accepts either the symbolic name or the numeric value.
func ParseClassification(value string) (Classification, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for c, name := range classificationNames {
		if name == v {
			return c, nil
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownClassification, value)
	}
	return classificationFromInt(int64(n))
}

func classificationFromInt(n int64) (Classification, error) {
	c := Classification(n)
	if int64(c) != n || !c.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownClassification, n)
	}
	return c, nil
}

// MarshalText renders the symbolic name, so map keys encode readably.
func (c Classification) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownClassification, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses names or numbers.
func (c *Classification) UnmarshalText(text []byte) error {
	parsed, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan implements sql.Scanner and rejects values outside the enum.
func (c *Classification) Scan(src any) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case []byte:
		parsed, err := strconv.ParseInt(string(v), 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownClassification, v)
		}
		n = parsed
	case nil:
		return fmt.Errorf("%w: NULL", ErrUnknownClassification)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrUnknownClassification, src)
	}

	parsed, err := classificationFromInt(n)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer.
func (c Classification) Value() (driver.Value, error) {
	return int64(c), nil
}
