package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

// Export column headers.
const (
	ColumnURL          = "ССЫЛКА НА ЗАПИСЬ"
	ColumnURLWithOwner = "ССЫЛКА НА ЗАПИСЬ С УЧЁТОМ ВЛАДЕЛЬЦА"
	ColumnWallOwner    = "ВЛАДЕЛЕЦ СТЕНЫ"
	ColumnPostAuthor   = "АВТОР ЗАПИСИ"
	ColumnDateTime     = "ДАТА И ВРЕМЯ"
	ColumnText         = "ТЕКСТ ПОСТА"
	ColumnLikes        = "ЛАЙКОВ"
	ColumnReposts      = "РЕПОСТОВ"
	ColumnComments     = "КОММЕНТАРИЕВ"
	ColumnViews        = "ПРОСМОТРОВ"
	ColumnCommentURL   = "ССЫЛКА НА КОММЕНТАРИЙ"
	ColumnAuthorName   = "НАЗВАНИЕ АВТОРА"
	ColumnSubscribers  = "ПОДПИСЧИКОВ"
)

var (
	// ErrMissingHeader is returned for an empty upload.
	ErrMissingHeader = errors.New("csv header row is missing")
	// ErrMissingURLColumn is returned when the url column is absent from the header.
	ErrMissingURLColumn = fmt.Errorf("csv header has no %q column", ColumnURL)
)

var dateLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// CSVReader decodes ";"-separated post exports.
type CSVReader struct {
	encoding string
	location *time.Location
}

var _ ports.RecordDecoder = (*CSVReader)(nil)

// NewCSVReader builds a reader. Encoding is "utf-8" (default) or "windows-1251";
// timestamps without an offset are read in loc (UTC when nil).
func NewCSVReader(encoding string, loc *time.Location) *CSVReader {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVReader{encoding: strings.ToLower(strings.TrimSpace(encoding)), location: loc}
}

// Decode reads every row with a url. Malformed rows and rows with an unreadable
// date are skipped; unreadable counters become zero.
func (c *CSVReader) Decode(r io.Reader) ([]domain.HeroRecord, error) {
	reader, err := c.decoder(r)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(reader)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	if _, ok := columns[ColumnURL]; !ok {
		return nil, ErrMissingURLColumn
	}

	var records []domain.HeroRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		url := strings.TrimSpace(field(ColumnURL))
		if url == "" {
			continue
		}

		published, ok := c.parseTime(field(ColumnDateTime))
		if !ok {
			continue
		}

		record := domain.HeroRecord{
			URL:          url,
			URLWithOwner: strings.TrimSpace(field(ColumnURLWithOwner)),
			WallOwner:    strings.TrimSpace(field(ColumnWallOwner)),
			PostAuthor:   strings.TrimSpace(field(ColumnPostAuthor)),
			DateTime:     published,
			Text:         PlainText(field(ColumnText)),
			Likes:        parseCount(field(ColumnLikes)),
			Reposts:      parseCount(field(ColumnReposts)),
			Comments:     parseCount(field(ColumnComments)),
			Views:        parseCount(field(ColumnViews)),
			AuthorName:   strings.TrimSpace(field(ColumnAuthorName)),
			Subscribers:  parseCount(field(ColumnSubscribers)),
		}
		if commentURL := strings.TrimSpace(field(ColumnCommentURL)); commentURL != "" {
			record.CommentURL = &commentURL
		}

		records = append(records, record)
	}

	return records, nil
}

func (c *CSVReader) decoder(r io.Reader) (io.Reader, error) {
	switch c.encoding {
	case "", "utf-8", "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "windows-1251", "cp1251":
		return transform.NewReader(r, charmap.Windows1251.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported csv encoding %q", c.encoding)
	}
}

func (c *CSVReader) parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, c.location); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseCount(raw string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, raw)
	n, err := strconv.Atoi(cleaned)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
