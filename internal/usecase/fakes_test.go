package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"HeroScanner/internal/domain"
)

var errStorage = errors.New("storage unavailable")

// memCorpus is an in-memory corpus with failure injection.
type memCorpus struct {
	mu      sync.Mutex
	records []domain.HeroRecord
	cursor  int64

	commits      int
	fetches      int
	failCommitOn int
	failFetchOn  int
	afterCommit  func(n int)
}

func newMemCorpus(texts ...string) *memCorpus {
	c := &memCorpus{}
	for i, text := range texts {
		c.records = append(c.records, domain.HeroRecord{ID: int64(i+1) * 10, Text: text})
	}
	return c
}

func (c *memCorpus) FetchUnclassifiedBatch(_ context.Context, lastSeenID int64, batchSize int) ([]domain.HeroRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetches++
	if c.fetches == c.failFetchOn {
		return nil, errStorage
	}

	var batch []domain.HeroRecord
	for _, r := range c.records {
		if r.ID > lastSeenID && r.Classification == domain.Unclassified {
			batch = append(batch, r)
			if len(batch) == batchSize {
				break
			}
		}
	}
	return batch, nil
}

func (c *memCorpus) CountUnclassified(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, r := range c.records {
		if r.Classification == domain.Unclassified {
			n++
		}
	}
	return n, nil
}

func (c *memCorpus) CommitBatch(_ context.Context, batch []domain.HeroRecord) error {
	c.mu.Lock()
	c.commits++
	n := c.commits
	if n == c.failCommitOn {
		c.mu.Unlock()
		return errStorage
	}

	byID := make(map[int64]domain.Classification, len(batch))
	for _, r := range batch {
		byID[r.ID] = r.Classification
	}
	for i := range c.records {
		if v, ok := byID[c.records[i].ID]; ok {
			c.records[i].Classification = v
		}
	}
	c.cursor = batch[len(batch)-1].ID
	hook := c.afterCommit
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

func (c *memCorpus) BulkSetClassification(_ context.Context, lacksSubstring string, value domain.Classification) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	needle := strings.ToLower(lacksSubstring)
	var n int64
	for i := range c.records {
		r := &c.records[i]
		if r.Classification != value && !strings.Contains(strings.ToLower(r.Text), needle) {
			r.Classification = value
			n++
		}
	}
	return n, nil
}

func (c *memCorpus) ResetAllClassifications(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.records {
		c.records[i].Classification = domain.Unclassified
	}
	c.cursor = 0
	return nil
}

func (c *memCorpus) LoadCursor(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor, nil
}

func (c *memCorpus) ClearCursor(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = 0
	return nil
}

func (c *memCorpus) snapshot() map[int64]domain.Classification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int64]domain.Classification, len(c.records))
	for _, r := range c.records {
		out[r.ID] = r.Classification
	}
	return out
}

func (c *memCorpus) classificationOf(id int64) domain.Classification {
	return c.snapshot()[id]
}

// memRepository stores records by url.
type memRepository struct {
	mu      sync.Mutex
	records map[string]domain.HeroRecord
	nextID  int64
	failing bool
}

func newMemRepository(urls ...string) *memRepository {
	r := &memRepository{records: map[string]domain.HeroRecord{}}
	for _, u := range urls {
		r.nextID++
		r.records[u] = domain.HeroRecord{ID: r.nextID, URL: u}
	}
	return r
}

func (r *memRepository) ExistingURLs(_ context.Context, urls []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failing {
		return nil, errStorage
	}
	out := map[string]bool{}
	for _, u := range urls {
		if _, ok := r.records[u]; ok {
			out[u] = true
		}
	}
	return out, nil
}

func (r *memRepository) InsertRecords(_ context.Context, records []domain.HeroRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, rec := range records {
		if _, ok := r.records[rec.URL]; ok {
			continue
		}
		r.nextID++
		rec.ID = r.nextID
		r.records[rec.URL] = rec
		inserted++
	}
	return inserted, nil
}

func (r *memRepository) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.records))
	for u := range r.records {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// stubQuery counts calls so cache behaviour can be observed.
type stubQuery struct {
	mu          sync.Mutex
	counts      map[domain.Classification]int
	metrics     []domain.DailyMetric
	page        domain.Page
	countCalls  int
	metricCalls int
	lastPage    [2]int
	recalced    int64
}

func (q *stubQuery) FindRecords(_ context.Context, _ domain.RecordFilter, page, pageSize int) (domain.Page, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastPage = [2]int{page, pageSize}
	p := q.page
	p.PageNumber, p.PageSize = page, pageSize
	return p, nil
}

func (q *stubQuery) ClassificationCounts(context.Context, domain.RecordFilter) (map[domain.Classification]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.countCalls++
	return q.counts, nil
}

func (q *stubQuery) DailyMetrics(context.Context, domain.RecordFilter) ([]domain.DailyMetric, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.metricCalls++
	return q.metrics, nil
}

func (q *stubQuery) RecalculateMetrics(context.Context) (int64, error) {
	return q.recalced, nil
}

type stubDecoder struct {
	records []domain.HeroRecord
	err     error
}

func (d stubDecoder) Decode(io.Reader) ([]domain.HeroRecord, error) {
	return d.records, d.err
}

type stubSource struct {
	records []domain.HeroRecord
	err     error
	windows [][2]time.Time
}

func (s *stubSource) FetchWindow(_ context.Context, from, to time.Time) ([]domain.HeroRecord, error) {
	s.windows = append(s.windows, [2]time.Time{from, to})
	return s.records, s.err
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) Publish(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

type recordingMetrics struct {
	mu       sync.Mutex
	batches  int
	records  int
	statuses []string
	ingested map[string]int
}

func (m *recordingMetrics) ObserveBatch(size int, _ time.Duration, _ map[domain.Classification]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.records += size
}

func (m *recordingMetrics) ObserveRun(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *recordingMetrics) ObserveIngest(source string, inserted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ingested == nil {
		m.ingested = map[string]int{}
	}
	m.ingested[source] += inserted
}
