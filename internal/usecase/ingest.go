package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Rutikm18/ChakraWatch/internal/analysis"
	"github.com/Rutikm18/ChakraWatch/internal/config"
	"github.com/Rutikm18/ChakraWatch/internal/domain"
	"github.com/Rutikm18/ChakraWatch/internal/normalize"
	"github.com/Rutikm18/ChakraWatch/internal/ports"
	"github.com/Rutikm18/ChakraWatch/internal/scanner"
)

const defaultWorkers = 4

// IngestorDeps wires all collaborators into the scrape orchestrator.
type IngestorDeps struct {
	Registry   *scanner.Registry
	Sources    []config.SourceConfig
	Repository ports.ArticleRepository
	Normalizer *normalize.Normalizer
	Classifier *analysis.Classifier
	Extractor  *analysis.Extractor
	Workers    int
	Logger     *slog.Logger
}

// Ingestor coordinates one scrape run: concurrent bounded fetch across
// sources, then normalize → dedup → classify → extract → commit per
// entry. At most one run is active at a time; commits are serialized
// through the single consumer loop.
type Ingestor struct {
	registry   *scanner.Registry
	sources    []config.SourceConfig
	repository ports.ArticleRepository
	normalizer *normalize.Normalizer
	classifier *analysis.Classifier
	extractor  *analysis.Extractor
	workers    int
	logger     *slog.Logger

	mu    sync.Mutex
	state domain.RunState
}

// NewIngestor constructs the orchestration component.
func NewIngestor(deps IngestorDeps) *Ingestor {
	workers := deps.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Ingestor{
		registry:   deps.Registry,
		sources:    deps.Sources,
		repository: deps.Repository,
		normalizer: deps.Normalizer,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		workers:    workers,
		logger:     deps.Logger,
		state:      domain.RunIdle,
	}
}

// State reports the current orchestrator state.
func (in *Ingestor) State() domain.RunState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

type fetchResult struct {
	source  config.SourceConfig
	entries []domain.RawEntry
	err     error
}

// Run executes one scrape run and returns its summary. A trigger while
// another run is active is rejected with domain.ErrRunActive. Individual
// source failures are recorded in the summary and never fail the run;
// only a store fault does.
func (in *Ingestor) Run(ctx context.Context) (domain.RunSummary, error) {
	in.mu.Lock()
	if in.state == domain.RunRunning {
		in.mu.Unlock()
		return domain.RunSummary{}, domain.ErrRunActive
	}
	in.state = domain.RunRunning
	in.mu.Unlock()

	summary := domain.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		State:     domain.RunRunning,
	}

	in.info("scrape run started", "run_id", summary.RunID, "sources", len(in.sources))

	results := make(chan fetchResult)
	go in.fetchAll(ctx, results)

	var runErr error
	for result := range results {
		outcome := in.processSource(ctx, result, &summary, runErr != nil)
		if outcome.err != nil && runErr == nil {
			// Store fault: keep draining so workers can finish, but
			// accept nothing further.
			runErr = outcome.err
		}
		summary.Outcomes = append(summary.Outcomes, outcome.outcome)
	}

	summary.SourcesAttempted = len(summary.Outcomes)
	for _, outcome := range summary.Outcomes {
		if outcome.Succeeded {
			summary.SourcesSucceeded++
		} else {
			summary.SourcesFailed++
		}
	}
	summary.FinishedAt = time.Now().UTC()

	in.mu.Lock()
	if runErr != nil {
		summary.State = domain.RunFailed
	} else {
		summary.State = domain.RunCompleted
	}
	in.state = domain.RunIdle
	in.mu.Unlock()

	in.info("scrape run finished",
		"run_id", summary.RunID,
		"state", string(summary.State),
		"attempted", summary.SourcesAttempted,
		"succeeded", summary.SourcesSucceeded,
		"failed", summary.SourcesFailed,
		"accepted", summary.ItemsAccepted,
		"rejected", summary.ItemsRejected)

	if runErr != nil {
		return summary, fmt.Errorf("scrape run %s: %w", summary.RunID, runErr)
	}
	return summary, nil
}

// fetchAll runs one bounded worker per enabled source and closes the
// results channel when every fetch has finished.
func (in *Ingestor) fetchAll(ctx context.Context, results chan<- fetchResult) {
	g := new(errgroup.Group)
	g.SetLimit(in.workers)

	for _, src := range in.sources {
		if !src.IsEnabled() {
			continue
		}
		src := src
		g.Go(func() error {
			entries, err := in.fetchSource(ctx, src)
			results <- fetchResult{source: src, entries: entries, err: err}
			return nil
		})
	}

	_ = g.Wait()
	close(results)
}

// fetchSource resolves the adapter for the source's fetch kind and runs
// it under the source's own timeout. A timeout or fetch failure is
// isolated to this source.
func (in *Ingestor) fetchSource(ctx context.Context, src config.SourceConfig) ([]domain.RawEntry, error) {
	adapter, err := in.registry.Resolve(src.Kind)
	if err != nil {
		return nil, err
	}

	fetchCtx := ctx
	if src.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, src.Timeout.Std())
		defer cancel()
	}

	return adapter.Fetch(fetchCtx, src)
}

type sourceProcessResult struct {
	outcome domain.SourceOutcome
	err     error
}

// processSource runs the synchronous half of the pipeline for one
// source's entries. storeDown short-circuits processing once a store
// fault has been seen.
func (in *Ingestor) processSource(ctx context.Context, result fetchResult, summary *domain.RunSummary, storeDown bool) sourceProcessResult {
	outcome := domain.SourceOutcome{SourceID: result.source.ID}

	if result.err != nil {
		outcome.Error = result.err.Error()
		in.warn("source fetch failed", "source", result.source.ID, "error", result.err)
		return sourceProcessResult{outcome: outcome}
	}

	outcome.Succeeded = true
	outcome.ItemsFetched = len(result.entries)
	if storeDown {
		return sourceProcessResult{outcome: outcome}
	}

	now := time.Now().UTC()
	for _, entry := range result.entries {
		candidate, err := in.normalizer.Normalize(entry, result.source.ID, now)
		if err != nil {
			in.debug("skip entry", "source", result.source.ID, "error", err)
			continue
		}

		duplicate, err := in.isDuplicate(ctx, candidate)
		if err != nil {
			return sourceProcessResult{outcome: outcome, err: fmt.Errorf("dedup lookup: %w", err)}
		}
		if duplicate {
			summary.ItemsRejected++
			continue
		}

		level, confidence, tags := in.classifier.Classify(candidate.FullText)
		iocs := in.extractor.Extract(candidate.FullText)

		article := domain.Article{
			URL:         candidate.URL,
			Fingerprint: candidate.Fingerprint,
			Title:       candidate.Title,
			Summary:     candidate.Summary,
			SourceID:    candidate.SourceID,
			PublishedAt: candidate.PublishedAt,
			IngestedAt:  now,
			ThreatLevel: level,
			Confidence:  confidence,
			Tags:        tags,
			IOCs:        iocs,
		}

		if _, err := in.repository.Save(ctx, article); err != nil {
			return sourceProcessResult{outcome: outcome, err: fmt.Errorf("commit article: %w", err)}
		}
		outcome.ItemsAccepted++
		summary.ItemsAccepted++
	}

	return sourceProcessResult{outcome: outcome}
}

// isDuplicate checks the canonical URL first, then the content
// fingerprint, which catches the same story republished elsewhere.
func (in *Ingestor) isDuplicate(ctx context.Context, candidate domain.Candidate) (bool, error) {
	known, err := in.repository.HasURL(ctx, candidate.URL)
	if err != nil || known {
		return known, err
	}
	return in.repository.HasFingerprint(ctx, candidate.Fingerprint)
}

func (in *Ingestor) info(msg string, args ...any) {
	if in.logger != nil {
		in.logger.Info(msg, args...)
	}
}

func (in *Ingestor) warn(msg string, args ...any) {
	if in.logger != nil {
		in.logger.Warn(msg, args...)
	}
}

func (in *Ingestor) debug(msg string, args ...any) {
	if in.logger != nil {
		in.logger.Debug(msg, args...)
	}
}
