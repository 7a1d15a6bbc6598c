package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/scanner"
	"HeroScanner/internal/usecase"
)

const defaultSearchCount = 100

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

type handlers struct {
	classifier Classifier
	analytics  AnalyticsService
	importer   RecordImporter
	search     scanner.Scanner
	guard      *usecase.RunGuard
	logger     *slog.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) mark(c *gin.Context) {
	var results domain.MarkResults
	err := h.guard.Do(func() error {
		var runErr error
		results, runErr = h.classifier.RunClassification(c.Request.Context())
		return runErr
	})

	var runErr *usecase.RunError
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &runErr):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":            runErr.Err.Error(),
			"batchesCommitted": runErr.BatchesCommitted,
			"results":          runErr.Results,
		})
	case err != nil:
		h.fail(c, err)
	default:
		c.JSON(http.StatusOK, results)
	}
}

func (h *handlers) resetMark(c *gin.Context) {
	err := h.guard.Do(func() error {
		return h.classifier.ResetClassification(c.Request.Context())
	})
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.fail(c, err)
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *handlers) uploadCSV(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil || header.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty or missing"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	result, err := h.importer.Import(c.Request.Context(), file)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": result.Inserted, "result": result})
}

func (h *handlers) recalculateMetrics(c *gin.Context) {
	updated, err := h.analytics.RecalculateMetrics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *handlers) classificationCounts(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	counts, err := h.analytics.ClassificationCounts(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *handlers) dailyMetrics(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	metrics, err := h.analytics.DailyMetrics(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *handlers) findRecords(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	result, err := h.analytics.FindRecords(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) testSearch(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	from, okFrom := parseDate(c.Query("start_date"))
	to, okTo := parseDate(c.Query("end_date"))
	if !okFrom || !okTo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}

	count := defaultSearchCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive integer"})
			return
		}
		count = n
	}

	records, err := h.search.Scan(c.Request.Context(), scanner.Request{
		SearchName: "test-search",
		Query:      c.Query("query"),
		From:       from,
		To:         to,
		Count:      count,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *handlers) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// bindFilter accepts an empty body as "no filter".
func bindFilter(c *gin.Context) (domain.RecordFilter, bool) {
	var filter domain.RecordFilter
	if err := c.ShouldBindJSON(&filter); err != nil && !isEmptyBody(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return filter, false
	}
	return filter, true
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isEmptyBody(err error) bool {
	return errors.Is(err, io.EOF)
}
