package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

const defaultInsertChunk = 500

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Source     ports.PostSource
	Repository ports.RecordRepository
	Analytics  *Analytics
	Metrics    ports.Metrics
	Logger     *slog.Logger
	SourceName string
	ChunkSize  int
}

// Pipeline implements the post-ingestion workflow.
type Pipeline struct {
	source     ports.PostSource
	repository ports.RecordRepository
	analytics  *Analytics
	metrics    ports.Metrics
	logger     *slog.Logger
	sourceName string
	chunkSize  int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.SourceName
	if name == "" {
		name = "vk"
	}
	chunk := deps.ChunkSize
	if chunk <= 0 {
		chunk = defaultInsertChunk
	}
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		analytics:  deps.Analytics,
		metrics:    metricsOrNoop(deps.Metrics),
		logger:     logger.With("component", "pipeline"),
		sourceName: name,
		chunkSize:  chunk,
	}
}

// ProcessWindow fetches posts published in [from, to] and stores the ones not seen before.
func (p *Pipeline) ProcessWindow(ctx context.Context, from, to time.Time) (domain.IngestResult, error) {
	var result domain.IngestResult
	if p.source == nil {
		return result, nil
	}

	records, err := p.source.FetchWindow(ctx, from, to)
	if err != nil {
		return result, fmt.Errorf("fetch window: %w", err)
	}

	result, err = storeNew(ctx, p.repository, records, p.chunkSize)
	if err != nil {
		return result, err
	}

	if result.Inserted > 0 && p.analytics != nil {
		p.analytics.Invalidate()
	}
	p.metrics.ObserveIngest(p.sourceName, result.Inserted)
	p.logger.Info("window processed",
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339),
		"fetched", result.Fetched,
		"skipped", result.Skipped,
		"inserted", result.Inserted)

	return result, nil
}

// storeNew drops records without a url, duplicates inside the input and urls already
// stored, then inserts the remainder in chunks.
func storeNew(ctx context.Context, repo ports.RecordRepository, records []domain.HeroRecord, chunk int) (domain.IngestResult, error) {
	result := domain.IngestResult{Fetched: len(records)}

	unique := make([]domain.HeroRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			result.Skipped++
			continue
		}
		if _, ok := seen[r.URL]; ok {
			result.Skipped++
			continue
		}
		seen[r.URL] = struct{}{}
		r.Classification = domain.Unclassified
		unique = append(unique, r)
	}

	if repo == nil || len(unique) == 0 {
		return result, nil
	}

	for start := 0; start < len(unique); start += chunk {
		end := min(start+chunk, len(unique))
		part := unique[start:end]

		urls := make([]string, len(part))
		for i, r := range part {
			urls[i] = r.URL
		}
		existing, err := repo.ExistingURLs(ctx, urls)
		if err != nil {
			return result, fmt.Errorf("load existing urls: %w", err)
		}

		fresh := make([]domain.HeroRecord, 0, len(part))
		for _, r := range part {
			if existing[r.URL] {
				result.Skipped++
				continue
			}
			fresh = append(fresh, r)
		}
		if len(fresh) == 0 {
			continue
		}

		inserted, err := repo.InsertRecords(ctx, fresh)
		if err != nil {
			return result, fmt.Errorf("insert records: %w", err)
		}
		result.Inserted += inserted
		result.Skipped += len(fresh) - inserted
	}

	return result, nil
}
