package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
	"github.com/Rutikm18/ChakraWatch/internal/ports"
)

// Scheduler wires the interval driver with the ingestion use case.
type Scheduler struct {
	driver   ports.Scheduler
	ingestor *Ingestor
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring scrape runs.
func NewScheduler(driver ports.Scheduler, ingestor *Ingestor, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, ingestor: ingestor, logger: logger}
}

// Start registers the scrape run with the provided scheduler. A tick
// that lands while a run is still active is dropped, not queued.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.ingestor == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.ingestor.Run(ctx); err != nil {
			if errors.Is(err, domain.ErrRunActive) {
				return
			}
			if s.logger != nil {
				s.logger.Error("scheduled scrape failed", "error", err)
			}
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
