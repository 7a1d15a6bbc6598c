package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

// CorpusRepository is the Postgres side of classification runs.
type CorpusRepository struct {
	db *sqlx.DB
}

var _ ports.Corpus = (*CorpusRepository)(nil)

// NewCorpusRepository wires a sqlx.DB implementation.
func NewCorpusRepository(db *sqlx.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

// FetchUnclassifiedBatch returns up to batchSize unclassified records after lastSeenID in id order.
func (r *CorpusRepository) FetchUnclassifiedBatch(ctx context.Context, lastSeenID int64, batchSize int) ([]domain.HeroRecord, error) {
	query, args, err := psql.
		Select("id", "text", "classification").
		From(recordsTable).
		Where(sq.Gt{"id": lastSeenID}).
		Where(sq.Eq{"classification": domain.Unclassified}).
		OrderBy("id").
		Limit(uint64(batchSize)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build batch query: %w", err)
	}

	var batch []domain.HeroRecord
	if err := r.db.SelectContext(ctx, &batch, query, args...); err != nil {
		return nil, fmt.Errorf("select batch: %w", err)
	}
	return batch, nil
}

// CountUnclassified reports how many records still await classification.
func (r *CorpusRepository) CountUnclassified(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM hero_records WHERE classification = $1`
	if err := r.db.GetContext(ctx, &n, query, domain.Unclassified); err != nil {
		return 0, fmt.Errorf("count unclassified: %w", err)
	}
	return n, nil
}

// CommitBatch writes every classification of the batch and moves the cursor to its last id.
func (r *CorpusRepository) CommitBatch(ctx context.Context, batch []domain.HeroRecord) error {
	if len(batch) == 0 {
		return nil
	}

	ids := make(pq.Int64Array, len(batch))
	values := make(pq.Int64Array, len(batch))
	for i, rec := range batch {
		ids[i] = rec.ID
		values[i] = int64(rec.Classification)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	update := `UPDATE hero_records AS r
               SET classification = v.classification
               FROM (SELECT UNNEST($1::bigint[]) AS id, UNNEST($2::smallint[]) AS classification) AS v
               WHERE r.id = v.id`
	if _, err := tx.ExecContext(ctx, update, ids, values); err != nil {
		return fmt.Errorf("update classifications: %w", err)
	}

	cursor := `INSERT INTO classification_cursor (id, last_seen_id, updated_at)
               VALUES (1, $1, NOW())
               ON CONFLICT (id) DO UPDATE
               SET last_seen_id = EXCLUDED.last_seen_id,
                   updated_at = NOW()`
	if _, err := tx.ExecContext(ctx, cursor, batch[len(batch)-1].ID); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// BulkSetClassification assigns value to every record whose text lacks the substring,
// ignoring case. Records already holding value are left untouched.
func (r *CorpusRepository) BulkSetClassification(ctx context.Context, lacksSubstring string, value domain.Classification) (int64, error) {
	query, args, err := psql.
		Update(recordsTable).
		Set("classification", value).
		Where(sq.NotEq{"classification": value}).
		Where(sq.NotILike{"text": containsPattern(lacksSubstring)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build bulk update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ResetAllClassifications returns every record to Unclassified and drops the cursor.
func (r *CorpusRepository) ResetAllClassifications(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reset := `UPDATE hero_records SET classification = $1 WHERE classification <> $1`
	if _, err := tx.ExecContext(ctx, reset, domain.Unclassified); err != nil {
		return fmt.Errorf("reset classifications: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM classification_cursor`); err != nil {
		return fmt.Errorf("clear cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

// LoadCursor returns the last committed id or zero when no run is pending.
func (r *CorpusRepository) LoadCursor(ctx context.Context) (int64, error) {
	var lastSeen int64
	err := r.db.GetContext(ctx, &lastSeen, `SELECT last_seen_id FROM classification_cursor WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return lastSeen, nil
}

// ClearCursor forgets the resume position.
func (r *CorpusRepository) ClearCursor(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classification_cursor`); err != nil {
		return fmt.Errorf("clear cursor: %w", err)
	}
	return nil
}
