package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Rutikm18/ChakraWatch/internal/analysis"
	"github.com/Rutikm18/ChakraWatch/internal/config"
	"github.com/Rutikm18/ChakraWatch/internal/infrastructure/feed"
	"github.com/Rutikm18/ChakraWatch/internal/infrastructure/scheduler"
	"github.com/Rutikm18/ChakraWatch/internal/infrastructure/scraper"
	"github.com/Rutikm18/ChakraWatch/internal/infrastructure/storage"
	"github.com/Rutikm18/ChakraWatch/internal/logging"
	"github.com/Rutikm18/ChakraWatch/internal/normalize"
	"github.com/Rutikm18/ChakraWatch/internal/scanner"
	"github.com/Rutikm18/ChakraWatch/internal/usecase"
)

// Application wires config to use cases and lifecycle orchestration.
// The HTTP layer consumes Ingestor, Query, and Analyzer; the binary
// itself drives the scheduled scrape loop.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repository *storage.SQLiteRepository

	Ingestor *usecase.Ingestor
	Query    *usecase.Query
	Analyzer *usecase.Analyzer

	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	repository, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open article store: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(feed.NewAdapter(nil))
	registry.Register(scraper.NewPageScraper(nil))

	classifier := analysis.NewClassifier()
	extractor := analysis.NewExtractor()

	ingestor := usecase.NewIngestor(usecase.IngestorDeps{
		Registry:   registry,
		Sources:    cfg.Sources,
		Repository: repository,
		Normalizer: normalize.New(cfg.Scraper.SummaryMaxLen),
		Classifier: classifier,
		Extractor:  extractor,
		Workers:    cfg.Scraper.Workers,
		Logger:     baseLogger.With("component", "ingestor"),
	})

	app := &Application{
		cfg:        cfg,
		logger:     baseLogger,
		repository: repository,
		Ingestor:   ingestor,
		Query:      usecase.NewQuery(repository),
		Analyzer:   usecase.NewAnalyzer(classifier, extractor),
	}

	if cfg.Scheduler.IsEnabled() {
		driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval.Std())
		app.scheduler = usecase.NewScheduler(driver, ingestor, baseLogger.With("component", "scheduler"))
	}

	return app, nil
}

// Run starts the scheduled scrape loop (or a single run when the
// scheduler is disabled) and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler == nil {
		if _, err := a.Ingestor.Run(ctx); err != nil {
			return fmt.Errorf("scrape run: %w", err)
		}
		return nil
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return a.Close(context.Background())
}

// Close stops the scheduler and releases the store.
func (a *Application) Close(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Warn("stop scheduler", "error", err)
		}
	}
	if err := a.repository.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
