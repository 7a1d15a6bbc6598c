package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"HeroScanner/internal/config"
	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
	"HeroScanner/internal/scanner"
)

// StrategySource implements PostSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	searches []config.SearchConfig
	logger   *slog.Logger
}

var _ ports.PostSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined searches.
func NewStrategySource(reg *scanner.Registry, searches []config.SearchConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		searches: searches,
		logger:   log,
	}
}

// FetchWindow runs every configured search over [from, to] and merges the results by url.
func (s *StrategySource) FetchWindow(ctx context.Context, from, to time.Time) ([]domain.HeroRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch window", "searches", len(s.searches), "from", from.Format(time.RFC3339), "to", to.Format(time.RFC3339))

	var aggregated []domain.HeroRecord
	seen := map[string]struct{}{}
	for _, search := range s.searches {
		s.debug("process search", "search", search.Name, "scanner", search.Scanner, "query", search.Query)
		strategy, err := s.registry.Resolve(search.Scanner)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", search.Name, err)
		}

		req := scanner.Request{
			SearchName: search.Name,
			Query:      search.Query,
			From:       from,
			To:         to,
			Count:      search.Count,
			Options:    search.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan search %s: %w", search.Name, err)
		}

		for _, record := range results {
			if _, ok := seen[record.URL]; ok {
				continue
			}
			seen[record.URL] = struct{}{}
			aggregated = append(aggregated, record)
		}
		s.debug("search produced posts", "search", search.Name, "count", len(results))
	}

	s.debug("strategy source done", "total_posts", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
