package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"HeroScanner/internal/classification"
	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

const (
	defaultBatchSize = 1000

	runStatusSuccess  = "success"
	runStatusFailed   = "failed"
	runStatusCanceled = "canceled"
)

// RunError reports a classification run that stopped before the corpus was exhausted.
// Batches committed before the failure stay committed.
type RunError struct {
	BatchesCommitted int
	Results          domain.MarkResults
	Err              error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("classification run stopped after %d batches: %v", e.BatchesCommitted, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ClassificationDeps wires storage and collaborators into the classification service.
type ClassificationDeps struct {
	Corpus    ports.Corpus
	Analytics *Analytics
	Notifier  ports.Notifier
	Metrics   ports.Metrics
	Logger    *slog.Logger

	// Rules overrides RulesFile when set.
	Rules     *classification.Rules
	RulesFile string
	BatchSize int
	Workers   int
}

// ClassificationService drives batch classification over the corpus.
type ClassificationService struct {
	corpus    ports.Corpus
	analytics *Analytics
	notifier  ports.Notifier
	metrics   ports.Metrics
	logger    *slog.Logger

	rules     *classification.Rules
	rulesFile string
	batchSize int
	workers   int
}

// NewClassificationService constructs the service with defaults for unset knobs.
func NewClassificationService(deps ClassificationDeps) *ClassificationService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}

	return &ClassificationService{
		corpus:    deps.Corpus,
		analytics: deps.Analytics,
		notifier:  deps.Notifier,
		metrics:   metricsOrNoop(deps.Metrics),
		logger:    logger.With("component", "classification"),
		rules:     deps.Rules,
		rulesFile: deps.RulesFile,
		batchSize: batchSize,
		workers:   workers,
	}
}

// RunClassification classifies every unclassified record batch by batch, then marks
// trigger-less records as NoHero with a single set-based update.
func (s *ClassificationService) RunClassification(ctx context.Context) (domain.MarkResults, error) {
	runID := uuid.NewString()
	log := s.logger.With("run_id", runID)
	started := time.Now()

	results := domain.MarkResults{ByClassification: map[domain.Classification]int{}}

	classifiers, err := s.newClassifiers()
	if err != nil {
		s.metrics.ObserveRun(runStatusFailed)
		return results, fmt.Errorf("load rules: %w", err)
	}
	trigger := classifiers[0].Trigger()

	cursor, err := s.corpus.LoadCursor(ctx)
	if err != nil {
		s.metrics.ObserveRun(runStatusFailed)
		return results, fmt.Errorf("load cursor: %w", err)
	}

	pending, err := s.corpus.CountUnclassified(ctx)
	if err != nil {
		s.metrics.ObserveRun(runStatusFailed)
		return results, fmt.Errorf("count unclassified: %w", err)
	}
	log.Info("classification run started", "pending", pending, "cursor", cursor, "batch_size", s.batchSize, "workers", s.workers)

	for {
		if err := ctx.Err(); err != nil {
			return results, s.stop(log, results, err)
		}

		batchStarted := time.Now()
		batch, err := s.corpus.FetchUnclassifiedBatch(ctx, cursor, s.batchSize)
		if err != nil {
			return results, s.stop(log, results, fmt.Errorf("fetch batch after id %d: %w", cursor, err))
		}
		if len(batch) == 0 {
			break
		}

		classifyBatch(classifiers, batch)

		// A started commit is allowed to finish even if the run is being cancelled.
		if err := s.corpus.CommitBatch(context.WithoutCancel(ctx), batch); err != nil {
			return results, s.stop(log, results, fmt.Errorf("commit batch after id %d: %w", cursor, err))
		}

		counts := tally(batch)
		for c, n := range counts {
			results.ByClassification[c] += n
		}
		results.Processed += len(batch)
		results.Unmarked += counts[domain.Unmarked]
		results.NoHero += int64(counts[domain.NoHero])
		results.BatchesCommitted++
		cursor = batch[len(batch)-1].ID

		elapsed := time.Since(batchStarted)
		s.metrics.ObserveBatch(len(batch), elapsed, counts)
		log.Info("batch committed",
			"batch", results.BatchesCommitted,
			"size", len(batch),
			"cursor", cursor,
			"processed", results.Processed,
			"pending", pending,
			"elapsed", elapsed)
	}

	fallback, err := s.corpus.BulkSetClassification(context.WithoutCancel(ctx), trigger, domain.NoHero)
	if err != nil {
		return results, s.stop(log, results, fmt.Errorf("fallback update: %w", err))
	}
	results.NoHero += fallback
	results.ByClassification[domain.NoHero] += int(fallback)

	if err := s.corpus.ClearCursor(context.WithoutCancel(ctx)); err != nil {
		log.Warn("clear cursor failed", "err", err)
	}

	s.invalidate()
	s.metrics.ObserveRun(runStatusSuccess)
	log.Info("classification run finished",
		"processed", results.Processed,
		"batches", results.BatchesCommitted,
		"unmarked", results.Unmarked,
		"no_hero", results.NoHero,
		"fallback", fallback,
		"elapsed", time.Since(started))

	s.notify(ctx, log, runID, results)
	return results, nil
}

// ResetClassification returns every record to Unclassified and forgets the cursor.
func (s *ClassificationService) ResetClassification(ctx context.Context) error {
	if err := s.corpus.ResetAllClassifications(ctx); err != nil {
		return fmt.Errorf("reset classifications: %w", err)
	}
	s.invalidate()
	s.logger.Info("classification reset")
	return nil
}

// GetClassificationCounts reports per-category totals for records matching filter.
func (s *ClassificationService) GetClassificationCounts(ctx context.Context, filter domain.RecordFilter) (map[domain.Classification]int, error) {
	if s.analytics == nil {
		return nil, errors.New("analytics is not configured")
	}
	return s.analytics.ClassificationCounts(ctx, filter)
}

// Explain classifies a single text with the current rules without touching storage.
func (s *ClassificationService) Explain(text string) (classification.Decision, error) {
	classifiers, err := s.newClassifiers()
	if err != nil {
		return classification.Decision{}, fmt.Errorf("load rules: %w", err)
	}
	return classifiers[0].Explain(text), nil
}

func (s *ClassificationService) newClassifiers() ([]*classification.Classifier, error) {
	rules := s.rules
	if rules == nil {
		loaded, err := classification.LoadRules(s.rulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	classifiers := make([]*classification.Classifier, s.workers)
	for i := range classifiers {
		c, err := classification.New(rules)
		if err != nil {
			return nil, err
		}
		classifiers[i] = c
	}
	return classifiers, nil
}

// classifyBatch fills in the classification of every record. Worker w owns the
// records at positions w, w+n, w+2n, so no two goroutines share a classifier or a slot.
func classifyBatch(classifiers []*classification.Classifier, batch []domain.HeroRecord) {
	if len(classifiers) == 1 || len(batch) < len(classifiers) {
		for i := range batch {
			batch[i].Classification = classifiers[0].Classify(batch[i].Text)
		}
		return
	}

	var g errgroup.Group
	n := len(classifiers)
	for w := range classifiers {
		c := classifiers[w]
		g.Go(func() error {
			for i := w; i < len(batch); i += n {
				batch[i].Classification = c.Classify(batch[i].Text)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func tally(batch []domain.HeroRecord) map[domain.Classification]int {
	counts := make(map[domain.Classification]int)
	for _, r := range batch {
		counts[r.Classification]++
	}
	return counts
}

func (s *ClassificationService) stop(log *slog.Logger, results domain.MarkResults, err error) error {
	status := runStatusFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = runStatusCanceled
	}
	s.metrics.ObserveRun(status)
	if results.BatchesCommitted > 0 {
		s.invalidate()
	}
	log.Error("classification run stopped", "status", status, "batches", results.BatchesCommitted, "err", err)
	return &RunError{BatchesCommitted: results.BatchesCommitted, Results: results, Err: err}
}

func (s *ClassificationService) invalidate() {
	if s.analytics != nil {
		s.analytics.Invalidate()
	}
}

func (s *ClassificationService) notify(ctx context.Context, log *slog.Logger, runID string, results domain.MarkResults) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, buildRunSummary(runID, results)); err != nil {
		log.Warn("publish run summary failed", "err", err)
	}
}

func buildRunSummary(runID string, results domain.MarkResults) string {
	summary := fmt.Sprintf("Classification run %s finished\nProcessed: %d\nBatches: %d\nUnmarked: %d\nNo hero: %d\n",
		runID, results.Processed, results.BatchesCommitted, results.Unmarked, results.NoHero)
	for _, c := range domain.Substantive() {
		summary += fmt.Sprintf("%s: %d\n", c, results.ByClassification[c])
	}
	summary += fmt.Sprintf("%s: %d\n", domain.Personal, results.ByClassification[domain.Personal])
	return summary
}
