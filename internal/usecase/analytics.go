package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// Analytics serves read-side queries with a short-lived result cache.
type Analytics struct {
	query  ports.RecordQuery
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewAnalytics builds the analytics use case. A non-positive ttl disables caching.
func NewAnalytics(query ports.RecordQuery, ttl time.Duration, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analytics{query: query, logger: logger.With("component", "analytics")}
	if ttl > 0 {
		a.cache = gocache.New(ttl, 2*ttl)
	}
	return a
}

// ClassificationCounts returns totals for Svo..Unmarked; NoHero is not reported.
func (a *Analytics) ClassificationCounts(ctx context.Context, filter domain.RecordFilter) (map[domain.Classification]int, error) {
	key := cacheKey("counts", filter)
	if cached, ok := a.get(key); ok {
		return cached.(map[domain.Classification]int), nil
	}

	raw, err := a.query.ClassificationCounts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("classification counts: %w", err)
	}

	counts := make(map[domain.Classification]int, len(domain.Counted()))
	for _, c := range domain.Counted() {
		counts[c] = raw[c]
	}

	a.set(key, counts)
	return counts, nil
}

// DailyMetrics returns per-day engagement averages in ascending date order.
func (a *Analytics) DailyMetrics(ctx context.Context, filter domain.RecordFilter) ([]domain.DailyMetric, error) {
	key := cacheKey("metrics", filter)
	if cached, ok := a.get(key); ok {
		return cached.([]domain.DailyMetric), nil
	}

	metrics, err := a.query.DailyMetrics(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("daily metrics: %w", err)
	}
	if metrics == nil {
		metrics = []domain.DailyMetric{}
	}

	a.set(key, metrics)
	return metrics, nil
}

// FindRecords pages through matching records, newest first.
func (a *Analytics) FindRecords(ctx context.Context, filter domain.RecordFilter, page, pageSize int) (domain.Page, error) {
	page, pageSize = normalizePage(page, pageSize)

	result, err := a.query.FindRecords(ctx, filter, page, pageSize)
	if err != nil {
		return domain.Page{}, fmt.Errorf("find records: %w", err)
	}
	if result.Items == nil {
		result.Items = []domain.HeroRecord{}
	}
	return result, nil
}

// RecalculateMetrics recomputes ER and VR for every record with subscribers.
func (a *Analytics) RecalculateMetrics(ctx context.Context) (int64, error) {
	updated, err := a.query.RecalculateMetrics(ctx)
	if err != nil {
		return 0, fmt.Errorf("recalculate metrics: %w", err)
	}
	a.Invalidate()
	a.logger.Info("metrics recalculated", "updated", updated)
	return updated, nil
}

// Invalidate drops every cached result.
func (a *Analytics) Invalidate() {
	if a.cache != nil {
		a.cache.Flush()
	}
}

func (a *Analytics) get(key string) (any, bool) {
	if a.cache == nil {
		return nil, false
	}
	return a.cache.Get(key)
}

func (a *Analytics) set(key string, value any) {
	if a.cache != nil {
		a.cache.Set(key, value, gocache.DefaultExpiration)
	}
}

func cacheKey(prefix string, filter domain.RecordFilter) string {
	raw, err := json.Marshal(filter)
	if err != nil {
		return prefix
	}
	return prefix + ":" + string(raw)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
