package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"HeroScanner/internal/domain"
)

// ErrUnknownScanner is returned by Resolve for names nobody registered.
var ErrUnknownScanner = errors.New("scanner is not registered")

// Request carries all parameters required to execute a search.
type Request struct {
	SearchName string
	Query      string
	From       time.Time
	To         time.Time
	Count      int
	Options    map[string]string
}

// Scanner captures a single network strategy (VK, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.HeroRecord, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("resolve %q: %w", name, ErrUnknownScanner)
}

// Names lists registered scanners in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
