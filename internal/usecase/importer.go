package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

// ImporterDeps wires the decoder and storage used by file uploads.
type ImporterDeps struct {
	Decoder    ports.RecordDecoder
	Repository ports.RecordRepository
	Analytics  *Analytics
	Metrics    ports.Metrics
	Logger     *slog.Logger
	ChunkSize  int
}

// Importer loads exported post tables into the corpus.
type Importer struct {
	decoder    ports.RecordDecoder
	repository ports.RecordRepository
	analytics  *Analytics
	metrics    ports.Metrics
	logger     *slog.Logger
	chunkSize  int
}

// NewImporter constructs the CSV import use case.
func NewImporter(deps ImporterDeps) *Importer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chunk := deps.ChunkSize
	if chunk <= 0 {
		chunk = defaultInsertChunk
	}
	return &Importer{
		decoder:    deps.Decoder,
		repository: deps.Repository,
		analytics:  deps.Analytics,
		metrics:    metricsOrNoop(deps.Metrics),
		logger:     logger.With("component", "importer"),
		chunkSize:  chunk,
	}
}

// Import decodes r and inserts records whose url is not stored yet.
// New records start out Unclassified.
func (i *Importer) Import(ctx context.Context, r io.Reader) (domain.IngestResult, error) {
	records, err := i.decoder.Decode(r)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("decode upload: %w", err)
	}

	result, err := storeNew(ctx, i.repository, records, i.chunkSize)
	if err != nil {
		return result, err
	}

	if result.Inserted > 0 && i.analytics != nil {
		i.analytics.Invalidate()
	}
	i.metrics.ObserveIngest("csv", result.Inserted)
	i.logger.Info("upload imported", "rows", result.Fetched, "skipped", result.Skipped, "inserted", result.Inserted)
	return result, nil
}
