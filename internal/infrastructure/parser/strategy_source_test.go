package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"HeroScanner/internal/config"
	"HeroScanner/internal/domain"
	"HeroScanner/internal/scanner"
)

type fakeScanner struct {
	name     string
	results  map[string][]domain.HeroRecord
	err      error
	requests []scanner.Request
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request) ([]domain.HeroRecord, error) {
	f.requests = append(f.requests, req)
	return f.results[req.Query], f.err
}

func TestStrategySourceFetchWindow(t *testing.T) {
	t.Parallel()

	fake := &fakeScanner{name: "vk", results: map[string][]domain.HeroRecord{
		"герой":   {{URL: "a"}, {URL: "b"}},
		"героизм": {{URL: "b"}, {URL: "c"}},
	}}
	reg := scanner.NewRegistry()
	reg.Register(fake)

	src := NewStrategySource(reg, []config.SearchConfig{
		{Name: "one", Scanner: "vk", Query: "герой", Count: 50},
		{Name: "two", Scanner: "vk", Query: "героизм"},
	}, nil)

	from := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	records, err := src.FetchWindow(context.Background(), from, to)
	if err != nil {
		t.Fatalf("FetchWindow error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 merged records, got %d", len(records))
	}
	if len(fake.requests) != 2 || fake.requests[0].Count != 50 || !fake.requests[1].To.Equal(to) {
		t.Fatalf("unexpected requests %+v", fake.requests)
	}
}

func TestStrategySourceErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewStrategySource(nil, nil, nil).FetchWindow(context.Background(), time.Now(), time.Now()); err == nil {
		t.Fatalf("expected error without registry")
	}

	reg := scanner.NewRegistry()
	src := NewStrategySource(reg, []config.SearchConfig{{Name: "x", Scanner: "ok"}}, nil)
	if _, err := src.FetchWindow(context.Background(), time.Now(), time.Now()); err == nil {
		t.Fatalf("expected unresolved scanner error")
	}

	reg.Register(&fakeScanner{name: "ok", err: errors.New("boom")})
	if _, err := src.FetchWindow(context.Background(), time.Now(), time.Now()); err == nil {
		t.Fatalf("expected scan error")
	}
}
