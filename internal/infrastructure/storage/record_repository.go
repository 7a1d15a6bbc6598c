package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

var insertColumns = []string{
	"url", "url_with_owner", "wall_owner", "post_author", "date_time", "text",
	"likes", "reposts", "comments", "views", "comment_url", "author_name",
	"subscribers", "classification",
}

var recordColumns = []string{
	"id", "url", "url_with_owner", "wall_owner", "post_author", "date_time", "text",
	"likes", "reposts", "comments", "views", "comment_url", "author_name",
	"subscribers", "classification", "er", "vr",
}

// RecordRepository stores ingested records and answers analytics queries.
type RecordRepository struct {
	db *sqlx.DB
}

var (
	_ ports.RecordRepository = (*RecordRepository)(nil)
	_ ports.RecordQuery      = (*RecordRepository)(nil)
)

// NewRecordRepository wires a sqlx.DB implementation.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// ExistingURLs returns a map with urls that already exist in storage.
func (r *RecordRepository) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(urls) == 0 {
		return result, nil
	}

	var found []string
	query := `SELECT url FROM hero_records WHERE url = ANY($1)`
	if err := r.db.SelectContext(ctx, &found, query, pq.StringArray(urls)); err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}

	for _, u := range found {
		result[u] = true
	}
	return result, nil
}

// InsertRecords adds records, silently skipping urls that appeared concurrently.
func (r *RecordRepository) InsertRecords(ctx context.Context, records []domain.HeroRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	builder := psql.Insert(recordsTable).Columns(insertColumns...)
	for _, rec := range records {
		builder = builder.Values(
			rec.URL, rec.URLWithOwner, rec.WallOwner, rec.PostAuthor, rec.DateTime.UTC(), rec.Text,
			rec.Likes, rec.Reposts, rec.Comments, rec.Views, rec.CommentURL, rec.AuthorName,
			rec.Subscribers, domain.Unclassified,
		)
	}

	query, args, err := builder.Suffix("ON CONFLICT (url) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// FindRecords returns one page of matching records, newest first.
func (r *RecordRepository) FindRecords(ctx context.Context, filter domain.RecordFilter, page, pageSize int) (domain.Page, error) {
	result := domain.Page{PageNumber: page, PageSize: pageSize}

	countQuery, countArgs, err := applyFilter(psql.Select("COUNT(*)").From(recordsTable), filter).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.db.GetContext(ctx, &result.TotalCount, countQuery, countArgs...); err != nil {
		return result, fmt.Errorf("count records: %w", err)
	}

	query, args, err := applyFilter(psql.Select(recordColumns...).From(recordsTable), filter).
		OrderBy("date_time DESC", "id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build page query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &result.Items, query, args...); err != nil {
		return result, fmt.Errorf("select records: %w", err)
	}
	return result, nil
}

// ClassificationCounts groups matching records by classification.
func (r *RecordRepository) ClassificationCounts(ctx context.Context, filter domain.RecordFilter) (map[domain.Classification]int, error) {
	query, args, err := applyFilter(psql.Select("classification", "COUNT(*) AS total").From(recordsTable), filter).
		GroupBy("classification").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counts query: %w", err)
	}

	var rows []struct {
		Classification domain.Classification `db:"classification"`
		Total          int                   `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select counts: %w", err)
	}

	counts := make(map[domain.Classification]int, len(rows))
	for _, row := range rows {
		counts[row.Classification] = row.Total
	}
	return counts, nil
}

// DailyMetrics averages VR and ER and the views per post for each UTC day.
func (r *RecordRepository) DailyMetrics(ctx context.Context, filter domain.RecordFilter) ([]domain.DailyMetric, error) {
	query, args, err := applyFilter(psql.Select(
		"date_trunc('day', date_time AT TIME ZONE 'UTC') AS day",
		"COALESCE(AVG(vr), 0) AS vr",
		"COALESCE(AVG(er), 0) AS er",
		"SUM(views)::float8 / COUNT(*) AS average",
	).From(recordsTable), filter).
		GroupBy("day").
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build metrics query: %w", err)
	}

	var metrics []domain.DailyMetric
	if err := r.db.SelectContext(ctx, &metrics, query, args...); err != nil {
		return nil, fmt.Errorf("select metrics: %w", err)
	}
	return metrics, nil
}

// RecalculateMetrics recomputes ER and VR from the raw counters.
func (r *RecordRepository) RecalculateMetrics(ctx context.Context) (int64, error) {
	query := `UPDATE hero_records
              SET er = ((likes + comments + reposts) * 100.0) / subscribers,
                  vr = (views * 100.0) / subscribers
              WHERE subscribers <> 0`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("recalculate metrics: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func applyFilter(b sq.SelectBuilder, f domain.RecordFilter) sq.SelectBuilder {
	contains := []struct {
		column string
		value  *string
	}{
		{"url", f.URL},
		{"url_with_owner", f.URLWithOwner},
		{"wall_owner", f.WallOwner},
		{"post_author", f.PostAuthor},
		{"text", f.Text},
		{"comment_url", f.CommentURL},
		{"author_name", f.AuthorName},
	}
	for _, c := range contains {
		if c.value == nil || strings.TrimSpace(*c.value) == "" {
			continue
		}
		b = b.Where(sq.ILike{c.column: containsPattern(strings.TrimSpace(*c.value))})
	}

	if f.From != nil {
		b = b.Where(sq.GtOrEq{"date_time": f.From.UTC()})
	}
	if f.To != nil {
		b = b.Where(sq.LtOrEq{"date_time": f.To.UTC()})
	}
	if f.Classification != nil {
		b = b.Where(sq.Eq{"classification": *f.Classification})
	}
	return b
}
