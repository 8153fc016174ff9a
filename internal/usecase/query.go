package usecase

import (
	"context"
	"fmt"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
	"github.com/Rutikm18/ChakraWatch/internal/ports"
)

// Pagination bounds shared by listing and search.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Query serves read operations over committed articles.
type Query struct {
	repository ports.ArticleRepository
}

// NewQuery constructs the read-side use case.
func NewQuery(repository ports.ArticleRepository) *Query {
	return &Query{repository: repository}
}

// List returns a page of articles, optionally filtered by a single
// threat level and source id.
func (q *Query) List(ctx context.Context, page, perPage int, threatLevel, sourceID string) (domain.PageResult, error) {
	query := domain.SearchQuery{Page: page, PerPage: perPage}

	if threatLevel != "" {
		level := domain.ThreatLevel(threatLevel)
		if !level.Valid() {
			return domain.PageResult{}, fmt.Errorf("%w: unknown threat level %q", domain.ErrInvalidInput, threatLevel)
		}
		query.ThreatLevels = []domain.ThreatLevel{level}
	}
	if sourceID != "" {
		query.Sources = []string{sourceID}
	}

	return q.Search(ctx, query)
}

// Search applies conjunctive filters and pagination. Results come back
// newest-first; a page past the end is empty, not an error.
func (q *Query) Search(ctx context.Context, query domain.SearchQuery) (domain.PageResult, error) {
	if err := validatePagination(&query); err != nil {
		return domain.PageResult{}, err
	}
	for _, level := range query.ThreatLevels {
		if !level.Valid() {
			return domain.PageResult{}, fmt.Errorf("%w: unknown threat level %q", domain.ErrInvalidInput, level)
		}
	}

	result, err := q.repository.Search(ctx, query)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("search articles: %w", err)
	}
	return result, nil
}

// Get loads one article and bumps its view counter.
func (q *Query) Get(ctx context.Context, id int64) (domain.Article, error) {
	if id <= 0 {
		return domain.Article{}, fmt.Errorf("%w: non-positive article id", domain.ErrInvalidInput)
	}

	article, err := q.repository.GetByID(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}
	if err := q.repository.IncrementViews(ctx, id); err != nil {
		return domain.Article{}, fmt.Errorf("record view: %w", err)
	}
	article.Views++
	return article, nil
}

// Stats computes distribution summaries over the whole store.
func (q *Query) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := q.repository.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

func validatePagination(query *domain.SearchQuery) error {
	if query.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", domain.ErrInvalidInput)
	}
	if query.PerPage == 0 {
		query.PerPage = DefaultPerPage
	}
	if query.PerPage < 1 || query.PerPage > MaxPerPage {
		return fmt.Errorf("%w: per_page must be within [1, %d]", domain.ErrInvalidInput, MaxPerPage)
	}
	return nil
}
