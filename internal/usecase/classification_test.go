package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeroScanner/internal/classification"
	"HeroScanner/internal/domain"
)

var sampleTexts = []string{
	"Он герой спецоперации.",
	"Мой брат герой СВО.",
	"Просто текст без героя.",
	"Сегодня хорошая погода.",
	"Герои Сталинграда. Наш дед тоже герой",
	"Мой отец герой",
	"Пожарный проявил себя как настоящий герой",
	"Ветеран Афганской войны, герой",
	"Стахановец, герой труда",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(corpus *memCorpus, batchSize, workers int) *ClassificationService {
	return NewClassificationService(ClassificationDeps{
		Corpus:    corpus,
		Rules:     classification.DefaultRules(),
		BatchSize: batchSize,
		Workers:   workers,
		Logger:    discardLogger(),
	})
}

func TestRunClassificationScenarios(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus(sampleTexts[:4]...)
	metrics := &recordingMetrics{}
	notifier := &recordingNotifier{}
	svc := NewClassificationService(ClassificationDeps{
		Corpus:    corpus,
		Rules:     classification.DefaultRules(),
		BatchSize: 2,
		Notifier:  notifier,
		Metrics:   metrics,
		Logger:    discardLogger(),
	})

	results, err := svc.RunClassification(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Svo, corpus.classificationOf(10))
	assert.Equal(t, domain.Svo, corpus.classificationOf(20))
	assert.Equal(t, domain.Unmarked, corpus.classificationOf(30))
	assert.Equal(t, domain.NoHero, corpus.classificationOf(40))

	assert.Equal(t, 4, results.Processed)
	assert.Equal(t, 2, results.BatchesCommitted)
	assert.Equal(t, 1, results.Unmarked)
	assert.EqualValues(t, 1, results.NoHero)
	assert.Equal(t, 2, results.ByClassification[domain.Svo])

	cursor, err := corpus.LoadCursor(context.Background())
	require.NoError(t, err)
	assert.Zero(t, cursor, "cursor should be cleared after a complete run")

	assert.Equal(t, 2, metrics.batches)
	assert.Equal(t, 4, metrics.records)
	assert.Equal(t, []string{runStatusSuccess}, metrics.statuses)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Processed: 4")
}

func TestRunClassificationEmptyCorpus(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus()
	results, err := newTestService(corpus, 10, 1).RunClassification(context.Background())
	require.NoError(t, err)
	assert.Zero(t, results.Processed)
	assert.Zero(t, results.BatchesCommitted)
}

func TestFallbackAloneMarksNoHero(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus("Сегодня хорошая погода.", "Он герой спецоперации.")
	n, err := corpus.BulkSetClassification(context.Background(), classification.DefaultTrigger, domain.NoHero)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, domain.NoHero, corpus.classificationOf(10))
	assert.Equal(t, domain.Unclassified, corpus.classificationOf(20))
}

func TestFallbackCommutesWithBatchLoop(t *testing.T) {
	t.Parallel()

	plain := newMemCorpus(sampleTexts...)
	_, err := newTestService(plain, 3, 1).RunClassification(context.Background())
	require.NoError(t, err)

	prefilled := newMemCorpus(sampleTexts...)
	_, err = prefilled.BulkSetClassification(context.Background(), classification.DefaultTrigger, domain.NoHero)
	require.NoError(t, err)
	_, err = newTestService(prefilled, 3, 1).RunClassification(context.Background())
	require.NoError(t, err)

	assert.Equal(t, plain.snapshot(), prefilled.snapshot())
}

func TestRunClassificationResumesAfterCommitFailure(t *testing.T) {
	t.Parallel()

	reference := newMemCorpus(sampleTexts...)
	_, err := newTestService(reference, 2, 1).RunClassification(context.Background())
	require.NoError(t, err)

	corpus := newMemCorpus(sampleTexts...)
	corpus.failCommitOn = 3
	svc := newTestService(corpus, 2, 1)

	_, err = svc.RunClassification(context.Background())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 2, runErr.BatchesCommitted)
	assert.ErrorIs(t, err, errStorage)

	cursor, err := corpus.LoadCursor(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 40, cursor, "cursor stays at the last committed batch")
	assert.Equal(t, domain.Unclassified, corpus.classificationOf(50))

	results, err := svc.RunClassification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(sampleTexts)-4, results.Processed)
	assert.Equal(t, reference.snapshot(), corpus.snapshot())
}

func TestRunClassificationFetchFailure(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus(sampleTexts...)
	corpus.failFetchOn = 1
	metrics := &recordingMetrics{}
	svc := NewClassificationService(ClassificationDeps{
		Corpus:  corpus,
		Rules:   classification.DefaultRules(),
		Metrics: metrics,
		Logger:  discardLogger(),
	})

	_, err := svc.RunClassification(context.Background())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Zero(t, runErr.BatchesCommitted)
	assert.Equal(t, []string{runStatusFailed}, metrics.statuses)
	for id, c := range corpus.snapshot() {
		assert.Equal(t, domain.Unclassified, c, "record %d", id)
	}
}

func TestRunClassificationStopsAtBatchBoundaryOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corpus := newMemCorpus(sampleTexts...)
	corpus.afterCommit = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	_, err := newTestService(corpus, 2, 1).RunClassification(ctx)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runErr.BatchesCommitted)

	assert.NotEqual(t, domain.Unclassified, corpus.classificationOf(10))
	assert.NotEqual(t, domain.Unclassified, corpus.classificationOf(20))
	assert.Equal(t, domain.Unclassified, corpus.classificationOf(30))
}

func TestResetThenRunIsIdempotent(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus(sampleTexts...)
	svc := newTestService(corpus, 4, 1)

	_, err := svc.RunClassification(context.Background())
	require.NoError(t, err)
	first := corpus.snapshot()

	require.NoError(t, svc.ResetClassification(context.Background()))
	for id, c := range corpus.snapshot() {
		assert.Equal(t, domain.Unclassified, c, "record %d", id)
	}

	_, err = svc.RunClassification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, corpus.snapshot())

	again, err := svc.RunClassification(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Processed, "second run without reset has nothing to do")
	assert.Equal(t, first, corpus.snapshot())
}

func TestParallelWorkersMatchSequential(t *testing.T) {
	t.Parallel()

	texts := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		texts = append(texts, fmt.Sprintf("%d. %s", i, sampleTexts[i%len(sampleTexts)]))
	}

	sequential := newMemCorpus(texts...)
	_, err := newTestService(sequential, 16, 1).RunClassification(context.Background())
	require.NoError(t, err)

	parallel := newMemCorpus(texts...)
	_, err = newTestService(parallel, 16, 4).RunClassification(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sequential.snapshot(), parallel.snapshot())
}

func TestRunClassificationInvalidRulesFile(t *testing.T) {
	t.Parallel()

	svc := NewClassificationService(ClassificationDeps{
		Corpus:    newMemCorpus(sampleTexts...),
		RulesFile: "/nonexistent/rules.yaml",
		Logger:    discardLogger(),
	})

	_, err := svc.RunClassification(context.Background())
	require.Error(t, err)
	var runErr *RunError
	assert.False(t, errors.As(err, &runErr), "rules errors happen before any batch")
}

func TestNotifierFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	svc := NewClassificationService(ClassificationDeps{
		Corpus:   newMemCorpus(sampleTexts[:2]...),
		Rules:    classification.DefaultRules(),
		Notifier: &recordingNotifier{err: errors.New("telegram down")},
		Logger:   discardLogger(),
	})

	_, err := svc.RunClassification(context.Background())
	require.NoError(t, err)
}

func TestRunInvalidatesAnalyticsCache(t *testing.T) {
	t.Parallel()

	query := &stubQuery{counts: map[domain.Classification]int{domain.Svo: 1}}
	analytics := NewAnalytics(query, time.Minute, discardLogger())
	svc := NewClassificationService(ClassificationDeps{
		Corpus:    newMemCorpus(sampleTexts[:2]...),
		Analytics: analytics,
		Rules:     classification.DefaultRules(),
		Logger:    discardLogger(),
	})

	_, err := svc.GetClassificationCounts(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	_, err = svc.GetClassificationCounts(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, query.countCalls)

	_, err = svc.RunClassification(context.Background())
	require.NoError(t, err)

	_, err = svc.GetClassificationCounts(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, query.countCalls)
}

func TestExplainUsesCurrentRules(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemCorpus(), 10, 1)
	decision, err := svc.Explain("Мой брат герой СВО.")
	require.NoError(t, err)
	assert.Equal(t, domain.Svo, decision.Classification)
	assert.Equal(t, 1, decision.Scores[domain.Personal])
}

func TestRunGuardRejectsConcurrentCalls(t *testing.T) {
	t.Parallel()

	var guard RunGuard
	inner := errors.New("unset")
	outer := guard.Do(func() error {
		inner = guard.Do(func() error { return nil })
		return nil
	})
	require.NoError(t, outer)
	assert.ErrorIs(t, inner, ErrRunInProgress)
	assert.NoError(t, guard.Do(func() error { return nil }))
}
