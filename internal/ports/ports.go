package ports

import (
	"context"
	"io"
	"time"

	"HeroScanner/internal/domain"
)

// Corpus is the storage side of a classification run.
type Corpus interface {
	FetchUnclassifiedBatch(ctx context.Context, lastSeenID int64, batchSize int) ([]domain.HeroRecord, error)
	CountUnclassified(ctx context.Context) (int, error)
	// CommitBatch stores the batch classifications and advances the cursor in one transaction.
	CommitBatch(ctx context.Context, batch []domain.HeroRecord) error
	BulkSetClassification(ctx context.Context, lacksSubstring string, value domain.Classification) (int64, error)
	// ResetAllClassifications returns every record to Unclassified and clears the cursor.
	ResetAllClassifications(ctx context.Context) error
	LoadCursor(ctx context.Context) (int64, error)
	ClearCursor(ctx context.Context) error
}

// RecordRepository persists ingested records for deduplication.
type RecordRepository interface {
	ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error)
	InsertRecords(ctx context.Context, records []domain.HeroRecord) (int, error)
}

// RecordQuery answers the read-side analytics questions.
type RecordQuery interface {
	FindRecords(ctx context.Context, filter domain.RecordFilter, page, pageSize int) (domain.Page, error)
	ClassificationCounts(ctx context.Context, filter domain.RecordFilter) (map[domain.Classification]int, error)
	DailyMetrics(ctx context.Context, filter domain.RecordFilter) ([]domain.DailyMetric, error)
	RecalculateMetrics(ctx context.Context) (int64, error)
}

// PostSource pulls fresh posts published inside a time window.
type PostSource interface {
	FetchWindow(ctx context.Context, from, to time.Time) ([]domain.HeroRecord, error)
}

// RecordDecoder turns an uploaded export into records.
type RecordDecoder interface {
	Decode(r io.Reader) ([]domain.HeroRecord, error)
}

// Notifier publishes short reports to Telegram or other channels.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}

// Metrics records run and ingestion telemetry.
type Metrics interface {
	ObserveBatch(size int, elapsed time.Duration, counts map[domain.Classification]int)
	ObserveRun(status string)
	ObserveIngest(source string, inserted int)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// UserRepository stores API accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) (int64, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	FindUsers(ctx context.Context, filter domain.UserFilter, page, pageSize int) (domain.UserPage, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user domain.User) (string, error)
}
