package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"HeroScanner/internal/api"
	"HeroScanner/internal/config"
	"HeroScanner/internal/infrastructure/parser"
	"HeroScanner/internal/infrastructure/scheduler"
	"HeroScanner/internal/infrastructure/storage"
	"HeroScanner/internal/infrastructure/telegram"
	"HeroScanner/internal/logging"
	"HeroScanner/internal/metrics"
	"HeroScanner/internal/scanner"
	"HeroScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sqlx.DB
	metrics *metrics.Prometheus
	guard   *usecase.RunGuard
	search  scanner.Scanner

	Classification *usecase.ClassificationService
	Analytics      *usecase.Analytics
	Importer       *usecase.Importer
	Pipeline       *usecase.Pipeline
	Scheduler      *usecase.Scheduler
	Users          *usecase.UserService
}

// New connects to the database and builds every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN, storage.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		db:      db,
		metrics: metrics.New(),
		guard:   &usecase.RunGuard{},
	}
	a.wire()
	return a, nil
}

func (a *Application) wire() {
	cfg := a.cfg
	corpus := storage.NewCorpusRepository(a.db)
	records := storage.NewRecordRepository(a.db)

	a.Analytics = usecase.NewAnalytics(records, cfg.HTTP.CacheTTL, a.logger)

	a.Users = usecase.NewUserService(usecase.UserDeps{
		Repository: storage.NewUserRepository(a.db),
		Tokens:     api.NewTokenIssuer(cfg.HTTP.JWTSecret, cfg.HTTP.TokenTTL),
		Logger:     a.logger,
	})

	deps := usecase.ClassificationDeps{
		Corpus:    corpus,
		Analytics: a.Analytics,
		Metrics:   a.metrics,
		Logger:    a.logger,
		RulesFile: cfg.Classification.RulesFile,
		BatchSize: cfg.Classification.BatchSize,
		Workers:   cfg.Classification.Workers,
	}
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		deps.Notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}
	a.Classification = usecase.NewClassificationService(deps)

	a.Importer = usecase.NewImporter(usecase.ImporterDeps{
		Decoder:    parser.NewCSVReader(cfg.Import.Encoding, cfg.Scheduler.Location()),
		Repository: records,
		Analytics:  a.Analytics,
		Metrics:    a.metrics,
		Logger:     a.logger,
		ChunkSize:  cfg.Import.BatchSize,
	})

	vk := parser.NewVKScanner(&http.Client{Timeout: cfg.VK.Timeout}, parser.VKOptions{
		Endpoint:          cfg.VK.Endpoint,
		AccessToken:       cfg.VK.AccessToken,
		APIVersion:        cfg.VK.APIVersion,
		RequestsPerSecond: cfg.VK.RequestsPerSecond,
		Logger:            a.logger,
	})
	a.search = vk

	registry := scanner.NewRegistry()
	registry.Register(vk)
	a.logger.Debug("scanners registered", "names", registry.Names())
	source := parser.NewStrategySource(registry, cfg.Searches, a.logger.With("component", "source"))

	a.Pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: records,
		Analytics:  a.Analytics,
		Metrics:    a.metrics,
		Logger:     a.logger,
		SourceName: vk.Name(),
		ChunkSize:  cfg.Import.BatchSize,
	})

	schedDeps := usecase.SchedulerDeps{
		Driver:   scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), false, a.logger),
		Pipeline: a.Pipeline,
		Guard:    a.guard,
		Lookback: cfg.Scheduler.Lookback,
		Logger:   a.logger,
	}
	if cfg.Scheduler.ClassifyAfterIngest {
		schedDeps.Classifier = a.Classification
	}
	a.Scheduler = usecase.NewScheduler(schedDeps)
}

// Migrator returns a schema migrator bound to the application database.
func (a *Application) Migrator() (*storage.Migrator, error) {
	return storage.NewMigrator(a.db.DB)
}

// Serve runs the HTTP API, plus the ingestion scheduler when enabled, until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	if a.cfg.Scheduler.Enabled {
		if err := a.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() {
			if err := a.Scheduler.Stop(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("scheduler stop failed", "err", err)
			}
		}()
	}

	server := api.NewServer(a.cfg.HTTP.Addr, api.Deps{
		Classifier: a.Classification,
		Analytics:  a.Analytics,
		Importer:   a.Importer,
		Users:      a.Users,
		Search:     a.search,
		Guard:      a.guard,
		Metrics:    a.metrics.Handler(),
		JWTSecret:  a.cfg.HTTP.JWTSecret,
		Logger:     a.logger,
	})
	return server.Run(ctx)
}

// Guard serialises mark and reset across API, scheduler and CLI.
func (a *Application) Guard() *usecase.RunGuard {
	return a.guard
}

// Close releases the database pool.
func (a *Application) Close() error {
	return a.db.Close()
}

// Lookback is the default ingestion window length.
func (a *Application) Lookback() time.Duration {
	if a.cfg.Scheduler.Lookback <= 0 {
		return 24 * time.Hour
	}
	return a.cfg.Scheduler.Lookback
}
