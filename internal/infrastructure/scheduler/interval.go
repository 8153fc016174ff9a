package scheduler

import (
	"context"
	"time"

	"github.com/Rutikm18/ChakraWatch/internal/ports"
)

// IntervalScheduler triggers the job on a fixed interval, starting with
// an immediate run.
type IntervalScheduler struct {
	interval time.Duration
	stop     chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler ticking at the given interval.
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &IntervalScheduler{interval: interval}
}

// Start begins ticking until Stop or context cancellation.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if s.stop != nil {
		return nil
	}

	// The goroutine keeps its own reference so Stop clearing the field
	// cannot leave it selecting on a nil channel.
	stop := make(chan struct{})
	s.stop = stop
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
