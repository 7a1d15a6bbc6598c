// Package api exposes classification, import and analytics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/scanner"
	"HeroScanner/internal/usecase"
)

const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 10 * time.Minute
	shutdownTimeout = 15 * time.Second
)

// Classifier runs and resets batch classification.
type Classifier interface {
	RunClassification(ctx context.Context) (domain.MarkResults, error)
	ResetClassification(ctx context.Context) error
}

// AnalyticsService answers read-side queries.
type AnalyticsService interface {
	ClassificationCounts(ctx context.Context, filter domain.RecordFilter) (map[domain.Classification]int, error)
	DailyMetrics(ctx context.Context, filter domain.RecordFilter) ([]domain.DailyMetric, error)
	FindRecords(ctx context.Context, filter domain.RecordFilter, page, pageSize int) (domain.Page, error)
	RecalculateMetrics(ctx context.Context) (int64, error)
}

// RecordImporter loads uploaded exports.
type RecordImporter interface {
	Import(ctx context.Context, r io.Reader) (domain.IngestResult, error)
}

// Deps wires use cases into the router.
type Deps struct {
	Classifier Classifier
	Analytics  AnalyticsService
	Importer   RecordImporter
	Guard      *usecase.RunGuard
	Metrics    http.Handler

	// Users enables login and account routes when set.
	Users UserManager

	// Search backs the test-search endpoint; nil disables it.
	Search scanner.Scanner

	JWTSecret string
	Logger    *slog.Logger
}

// Server owns the gin engine and its http.Server.
type Server struct {
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer builds the router and binds it to addr.
func NewServer(addr string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(deps)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: logger.With("component", "http"),
	}
}

// Router returns the underlying engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// NewRouter registers every route on a fresh engine.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	guard := deps.Guard
	if guard == nil {
		guard = &usecase.RunGuard{}
	}

	h := &handlers{
		classifier: deps.Classifier,
		analytics:  deps.Analytics,
		importer:   deps.Importer,
		search:     deps.Search,
		guard:      guard,
		logger:     logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/health", h.health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	if deps.JWTSecret == "" {
		logger.Warn("jwt secret is empty, authentication disabled")
	}
	authenticated := router.Group("/", authMiddleware(deps.JWTSecret))
	admin := authenticated.Group("/", requireRole(deps.JWTSecret, roleAdmin))

	records := authenticated.Group("/hero-records")
	records.PATCH("/classification-counts", h.classificationCounts)
	records.PATCH("/metrics", h.dailyMetrics)
	records.PATCH("/records", h.findRecords)

	adminRecords := admin.Group("/hero-records")
	adminRecords.POST("/upload-csv", h.uploadCSV)
	adminRecords.POST("/mark", h.mark)
	adminRecords.POST("/reset-mark", h.resetMark)
	adminRecords.POST("/recalculate-metrics", h.recalculateMetrics)

	admin.GET("/vk-search/test-search", h.testSearch)

	if deps.Users != nil {
		uh := &userHandlers{users: deps.Users}
		router.POST("/user/login", uh.login)
		authenticated.GET("/user/test-auth", uh.whoAmI)
		admin.POST("/user/create-user", uh.createUser)
		admin.DELETE("/user/user", uh.deleteUser)
		admin.PATCH("/user/users-by-filter", uh.findUsers)
	}

	return router
}
