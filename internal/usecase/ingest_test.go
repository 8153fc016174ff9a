package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Rutikm18/ChakraWatch/internal/analysis"
	"github.com/Rutikm18/ChakraWatch/internal/config"
	"github.com/Rutikm18/ChakraWatch/internal/domain"
	"github.com/Rutikm18/ChakraWatch/internal/normalize"
	"github.com/Rutikm18/ChakraWatch/internal/scanner"
)

// fakeRepo is an in-memory ports.ArticleRepository.
type fakeRepo struct {
	mu       sync.Mutex
	articles []domain.Article
	nextID   int64
	saveErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1}
}

func (f *fakeRepo) HasURL(ctx context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Save(ctx context.Context, article domain.Article) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	article.ID = f.nextID
	f.nextID++
	f.articles = append(f.articles, article)
	return article.ID, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Article{}, domain.ErrNotFound
}

func (f *fakeRepo) IncrementViews(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == id {
			f.articles[i].Views++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeRepo) Search(ctx context.Context, q domain.SearchQuery) (domain.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.PageResult{
		Items: append([]domain.Article(nil), f.articles...),
		Total: int64(len(f.articles)), Page: q.Page, PerPage: q.PerPage,
	}, nil
}

func (f *fakeRepo) Stats(ctx context.Context) (domain.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.Stats{TotalArticles: int64(len(f.articles))}, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.articles)
}

func (f *fakeRepo) bySource(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.articles {
		if a.SourceID == id {
			n++
		}
	}
	return n
}

// stubScanner serves canned entries per source id, or blocks/fails.
type stubScanner struct {
	entries map[string][]domain.RawEntry
	block   map[string]chan struct{}
}

func (s *stubScanner) Kind() string { return "stub" }

func (s *stubScanner) Fetch(ctx context.Context, src config.SourceConfig) ([]domain.RawEntry, error) {
	if gate, ok := s.block[src.ID]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch %s: %w", src.ID, ctx.Err())
		}
	}
	entries, ok := s.entries[src.ID]
	if !ok {
		return nil, fmt.Errorf("no entries for %s", src.ID)
	}
	return entries, nil
}

func stubSource(id string) config.SourceConfig {
	return config.SourceConfig{
		ID:       id,
		Kind:     "stub",
		URL:      "https://" + id + ".example/feed",
		MaxItems: 20,
		Timeout:  config.Duration(100 * time.Millisecond),
	}
}

func newTestIngestor(repo *fakeRepo, stub *stubScanner, sources ...config.SourceConfig) *Ingestor {
	registry := scanner.NewRegistry()
	registry.Register(stub)
	return NewIngestor(IngestorDeps{
		Registry:   registry,
		Sources:    sources,
		Repository: repo,
		Normalizer: normalize.New(0),
		Classifier: analysis.NewClassifier(),
		Extractor:  analysis.NewExtractor(),
		Workers:    2,
	})
}

func entriesFor(id string, n int) []domain.RawEntry {
	entries := make([]domain.RawEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, domain.RawEntry{
			Title:   fmt.Sprintf("Story %d from %s", i, id),
			Summary: fmt.Sprintf("Ransomware report %d for %s", i, id),
			URL:     fmt.Sprintf("https://%s.example/story-%d", id, i),
		})
	}
	return entries
}

func TestRunIngestsAllSources(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	stub := &stubScanner{entries: map[string][]domain.RawEntry{
		"alpha": entriesFor("alpha", 3),
		"beta":  entriesFor("beta", 2),
	}}
	in := newTestIngestor(repo, stub, stubSource("alpha"), stubSource("beta"))

	summary, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.State != domain.RunCompleted {
		t.Fatalf("expected completed run, got %s", summary.State)
	}
	if summary.SourcesAttempted != 2 || summary.SourcesSucceeded != 2 || summary.SourcesFailed != 0 {
		t.Fatalf("unexpected source counts: %+v", summary)
	}
	if summary.ItemsAccepted != 5 || repo.count() != 5 {
		t.Fatalf("expected 5 accepted, got summary=%d store=%d", summary.ItemsAccepted, repo.count())
	}
	if in.State() != domain.RunIdle {
		t.Fatalf("ingestor should return to idle, got %s", in.State())
	}
}

func TestRunIsolatesSourceTimeout(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	stub := &stubScanner{
		entries: map[string][]domain.RawEntry{
			"alpha": entriesFor("alpha", 2),
			"gamma": entriesFor("gamma", 2),
		},
		block: map[string]chan struct{}{
			"beta": make(chan struct{}), // never released; hits its timeout
		},
	}
	in := newTestIngestor(repo, stub, stubSource("alpha"), stubSource("beta"), stubSource("gamma"))

	summary, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("a source timeout must not fail the run: %v", err)
	}

	if summary.SourcesAttempted != 3 || summary.SourcesSucceeded != 2 || summary.SourcesFailed != 1 {
		t.Fatalf("expected attempted=3 succeeded=2 failed=1, got %+v", summary)
	}
	if repo.bySource("alpha") != 2 || repo.bySource("gamma") != 2 {
		t.Fatalf("successful sources must still commit: alpha=%d gamma=%d",
			repo.bySource("alpha"), repo.bySource("gamma"))
	}
	if repo.bySource("beta") != 0 {
		t.Fatalf("timed-out source committed articles")
	}

	var failed *domain.SourceOutcome
	for i := range summary.Outcomes {
		if summary.Outcomes[i].SourceID == "beta" {
			failed = &summary.Outcomes[i]
		}
	}
	if failed == nil || failed.Succeeded || failed.Error == "" {
		t.Fatalf("timed-out source outcome not recorded: %+v", failed)
	}
}

func TestRunDeduplicatesByURL(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	stub := &stubScanner{entries: map[string][]domain.RawEntry{
		"alpha": entriesFor("alpha", 2),
	}}
	in := newTestIngestor(repo, stub, stubSource("alpha"))

	if _, err := in.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if repo.count() != 2 {
		t.Fatalf("re-ingesting identical urls must not duplicate: %d articles", repo.count())
	}
	if summary.ItemsAccepted != 0 || summary.ItemsRejected != 2 {
		t.Fatalf("expected 0 accepted / 2 rejected on second run, got %d/%d",
			summary.ItemsAccepted, summary.ItemsRejected)
	}
}

func TestRunDeduplicatesByFingerprint(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	// Same story republished under a different URL.
	stub := &stubScanner{entries: map[string][]domain.RawEntry{
		"alpha": {
			{Title: "Exact same story", Summary: "Identical body", URL: "https://a.example/one"},
			{Title: "Exact same story", Summary: "Identical body", URL: "https://mirror.example/two"},
		},
	}}
	in := newTestIngestor(repo, stub, stubSource("alpha"))

	summary, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if repo.count() != 1 {
		t.Fatalf("fingerprint dedup failed: %d articles", repo.count())
	}
	if summary.ItemsAccepted != 1 || summary.ItemsRejected != 1 {
		t.Fatalf("expected 1 accepted / 1 rejected, got %d/%d", summary.ItemsAccepted, summary.ItemsRejected)
	}
}

func TestRunSingleFlight(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gate := make(chan struct{})
	stub := &stubScanner{
		entries: map[string][]domain.RawEntry{"alpha": entriesFor("alpha", 1)},
		block:   map[string]chan struct{}{"alpha": gate},
	}
	src := stubSource("alpha")
	src.Timeout = config.Duration(5 * time.Second)
	in := newTestIngestor(repo, stub, src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = in.Run(context.Background())
	}()

	// Wait for the first run to take the running state.
	deadline := time.After(2 * time.Second)
	for in.State() != domain.RunRunning {
		select {
		case <-deadline:
			t.Fatalf("first run never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := in.Run(context.Background()); !errors.Is(err, domain.ErrRunActive) {
		t.Fatalf("expected ErrRunActive for concurrent trigger, got %v", err)
	}

	close(gate)
	<-done

	if _, err := in.Run(context.Background()); err != nil {
		t.Fatalf("run after completion should be accepted: %v", err)
	}
}

func TestRunFailsWhenStoreUnavailable(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.saveErr = errors.New("disk full")
	stub := &stubScanner{entries: map[string][]domain.RawEntry{
		"alpha": entriesFor("alpha", 1),
	}}
	in := newTestIngestor(repo, stub, stubSource("alpha"))

	summary, err := in.Run(context.Background())
	if err == nil {
		t.Fatalf("expected store fault to fail the run")
	}
	if summary.State != domain.RunFailed {
		t.Fatalf("expected failed state, got %s", summary.State)
	}
	if in.State() != domain.RunIdle {
		t.Fatalf("ingestor should return to idle after failure, got %s", in.State())
	}
}

func TestRunAnalyzesEntries(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	stub := &stubScanner{entries: map[string][]domain.RawEntry{
		"alpha": {{
			Title:   "Critical RCE actively exploited",
			Summary: "Attackers use 203.0.113.7 and CVE-2026-1111 in the wild",
			URL:     "https://a.example/critical",
		}},
	}}
	in := newTestIngestor(repo, stub, stubSource("alpha"))

	if _, err := in.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	article, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("stored article missing: %v", err)
	}
	if article.ThreatLevel != domain.ThreatCritical {
		t.Fatalf("expected critical classification, got %s", article.ThreatLevel)
	}
	if article.Confidence <= 0 {
		t.Fatalf("expected positive confidence")
	}
	if len(article.IOCs) != 2 {
		t.Fatalf("expected cve and ip iocs, got %v", article.IOCs)
	}
	if article.IngestedAt.IsZero() || article.PublishedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", article)
	}
}
