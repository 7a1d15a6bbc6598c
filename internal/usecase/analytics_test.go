package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeroScanner/internal/domain"
)

func TestClassificationCountsZeroFillAndExcludeNoHero(t *testing.T) {
	t.Parallel()

	query := &stubQuery{counts: map[domain.Classification]int{
		domain.Svo:    3,
		domain.NoHero: 10,
	}}
	analytics := NewAnalytics(query, 0, discardLogger())

	counts, err := analytics.ClassificationCounts(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)

	assert.Len(t, counts, len(domain.Counted()))
	assert.Equal(t, 3, counts[domain.Svo])
	assert.Equal(t, 0, counts[domain.Personal])
	_, hasNoHero := counts[domain.NoHero]
	assert.False(t, hasNoHero)
}

func TestAnalyticsCachePerFilter(t *testing.T) {
	t.Parallel()

	query := &stubQuery{counts: map[domain.Classification]int{}}
	analytics := NewAnalytics(query, time.Minute, discardLogger())
	ctx := context.Background()

	text := "герой"
	filtered := domain.RecordFilter{Text: &text}

	for i := 0; i < 3; i++ {
		_, err := analytics.ClassificationCounts(ctx, domain.RecordFilter{})
		require.NoError(t, err)
	}
	_, err := analytics.ClassificationCounts(ctx, filtered)
	require.NoError(t, err)
	assert.Equal(t, 2, query.countCalls)

	analytics.Invalidate()
	_, err = analytics.ClassificationCounts(ctx, filtered)
	require.NoError(t, err)
	assert.Equal(t, 3, query.countCalls)
}

func TestDailyMetricsNeverNil(t *testing.T) {
	t.Parallel()

	query := &stubQuery{}
	analytics := NewAnalytics(query, time.Minute, discardLogger())

	metrics, err := analytics.DailyMetrics(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	assert.NotNil(t, metrics)
	assert.Empty(t, metrics)

	_, err = analytics.DailyMetrics(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, query.metricCalls)
}

func TestFindRecordsNormalizesPaging(t *testing.T) {
	t.Parallel()

	query := &stubQuery{}
	analytics := NewAnalytics(query, 0, discardLogger())

	page, err := analytics.FindRecords(context.Background(), domain.RecordFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, defaultPageSize}, query.lastPage)
	assert.NotNil(t, page.Items)

	_, err = analytics.FindRecords(context.Background(), domain.RecordFilter{}, 3, 10_000)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, maxPageSize}, query.lastPage)
}

func TestRecalculateMetricsFlushesCache(t *testing.T) {
	t.Parallel()

	query := &stubQuery{recalced: 7}
	analytics := NewAnalytics(query, time.Minute, discardLogger())
	ctx := context.Background()

	_, err := analytics.DailyMetrics(ctx, domain.RecordFilter{})
	require.NoError(t, err)

	updated, err := analytics.RecalculateMetrics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, updated)

	_, err = analytics.DailyMetrics(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, query.metricCalls)
}
