package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/scanner"
)

const (
	vkDefaultEndpoint = "https://api.vk.com/method"
	vkDefaultVersion  = "5.199"
	vkMaxPageSize     = 200
	vkDefaultCount    = 100
	vkFields          = "members_count,followers_count"
)

// ErrMissingToken is returned when no VK access token is configured.
var ErrMissingToken = errors.New("vk access token is not configured")

// VKError is an error payload returned by the VK API.
type VKError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *VKError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// Temporary reports errors worth counting against the circuit breaker.
func (e *VKError) Temporary() bool {
	switch e.Code {
	case 1, 6, 9, 10:
		return true
	default:
		return false
	}
}

// VKOptions configures the VK search strategy.
type VKOptions struct {
	Endpoint          string
	AccessToken       string
	APIVersion        string
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// VKScanner runs newsfeed.search and maps posts into records.
type VKScanner struct {
	client   *http.Client
	endpoint string
	token    string
	version  string
	pageSize int
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewVKScanner wires an HTTP client; requests are limited to RequestsPerSecond (3 by default).
func NewVKScanner(client *http.Client, opts VKOptions) *VKScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = vkDefaultEndpoint
	}
	version := opts.APIVersion
	if version == "" {
		version = vkDefaultVersion
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}

	s := &VKScanner{
		client:   client,
		endpoint: endpoint,
		token:    opts.AccessToken,
		version:  version,
		pageSize: vkMaxPageSize,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		logger:   logger.With("component", "vk"),
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vk-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *VKError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return s
}

// Name identifies the strategy inside the registry.
func (s *VKScanner) Name() string {
	return "vk"
}

// Scan pages through newsfeed.search results until req.Count posts were collected
// or VK has nothing more.
func (s *VKScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.HeroRecord, error) {
	if s.token == "" {
		return nil, ErrMissingToken
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("search %s: empty query", req.SearchName)
	}

	want := req.Count
	if want <= 0 {
		want = vkDefaultCount
	}

	results := make([]domain.HeroRecord, 0, want)
	seen := map[string]struct{}{}
	startFrom := ""

	for len(results) < want {
		page, err := s.fetchPage(ctx, req, startFrom, min(want-len(results), s.pageSize))
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", req.Query, err)
		}

		for _, record := range page.records() {
			if _, ok := seen[record.URL]; ok {
				continue
			}
			seen[record.URL] = struct{}{}
			results = append(results, record)
		}

		s.logger.Debug("page fetched", "query", req.Query, "items", len(page.Items), "total", len(results))

		if page.NextFrom == "" || len(page.Items) == 0 {
			break
		}
		startFrom = page.NextFrom
	}

	if len(results) > want {
		results = results[:want]
	}
	return results, nil
}

func (s *VKScanner) fetchPage(ctx context.Context, req scanner.Request, startFrom string, count int) (*vkSearchPage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("access_token", s.token)
	params.Set("v", s.version)
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(count))
	params.Set("extended", "1")
	params.Set("fields", vkFields)
	if !req.From.IsZero() {
		params.Set("start_time", strconv.FormatInt(req.From.Unix(), 10))
	}
	if !req.To.IsZero() {
		params.Set("end_time", strconv.FormatInt(req.To.Unix(), 10))
	}
	if startFrom != "" {
		params.Set("start_from", startFrom)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.request(ctx, s.endpoint+"/newsfeed.search?"+params.Encode())
	})
	if err != nil {
		return nil, err
	}
	return result.(*vkSearchPage), nil
}

func (s *VKScanner) request(ctx context.Context, pageURL string) (*vkSearchPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "HeroScanner/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request newsfeed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vk returned %s", resp.Status)
	}

	var envelope struct {
		Response *vkSearchPage `json:"response"`
		Error    *VKError      `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	if envelope.Response == nil {
		return &vkSearchPage{}, nil
	}
	return envelope.Response, nil
}

type vkCounter struct {
	Count int `json:"count"`
}

type vkPost struct {
	ID       int64     `json:"id"`
	OwnerID  int64     `json:"owner_id"`
	FromID   int64     `json:"from_id"`
	Date     int64     `json:"date"`
	Text     string    `json:"text"`
	Likes    vkCounter `json:"likes"`
	Reposts  vkCounter `json:"reposts"`
	Comments vkCounter `json:"comments"`
	Views    vkCounter `json:"views"`
}

type vkGroup struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	MembersCount int    `json:"members_count"`
}

type vkProfile struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	FollowersCount int    `json:"followers_count"`
}

type vkSearchPage struct {
	Items      []vkPost    `json:"items"`
	Groups     []vkGroup   `json:"groups"`
	Profiles   []vkProfile `json:"profiles"`
	NextFrom   string      `json:"next_from"`
	TotalCount int         `json:"total_count"`
}

func (p *vkSearchPage) records() []domain.HeroRecord {
	groups := make(map[int64]vkGroup, len(p.Groups))
	for _, g := range p.Groups {
		groups[g.ID] = g
	}
	profiles := make(map[int64]vkProfile, len(p.Profiles))
	for _, pr := range p.Profiles {
		profiles[pr.ID] = pr
	}

	records := make([]domain.HeroRecord, 0, len(p.Items))
	for _, item := range p.Items {
		link := fmt.Sprintf("https://vk.com/wall%d_%d", item.OwnerID, item.ID)
		owner := ownerURL(item.OwnerID)

		author := owner
		if item.FromID != 0 {
			author = ownerURL(item.FromID)
		}

		record := domain.HeroRecord{
			URL:          link,
			URLWithOwner: link,
			WallOwner:    owner,
			PostAuthor:   author,
			DateTime:     time.Unix(item.Date, 0).UTC(),
			Text:         item.Text,
			Likes:        item.Likes.Count,
			Reposts:      item.Reposts.Count,
			Comments:     item.Comments.Count,
			Views:        item.Views.Count,
		}

		abs := absID(item.OwnerID)
		if item.OwnerID < 0 {
			g := groups[abs]
			record.Subscribers = g.MembersCount
			record.AuthorName = g.Name
		} else {
			pr := profiles[abs]
			record.Subscribers = pr.FollowersCount
			record.AuthorName = strings.TrimSpace(pr.FirstName + " " + pr.LastName)
		}

		records = append(records, record)
	}
	return records
}

func ownerURL(id int64) string {
	if id < 0 {
		return fmt.Sprintf("https://vk.com/club%d", absID(id))
	}
	return fmt.Sprintf("https://vk.com/id%d", id)
}

func absID(id int64) int64 {
	if id < 0 {
		return -id
	}
	return id
}
