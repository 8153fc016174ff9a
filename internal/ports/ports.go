package ports

import (
	"context"
	"time"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
)

// ArticleRepository is the durable, indexed article collection.
// Implementations must serialize commits and never expose an
// uncommitted article to readers.
type ArticleRepository interface {
	HasURL(ctx context.Context, url string) (bool, error)
	HasFingerprint(ctx context.Context, fingerprint string) (bool, error)
	Save(ctx context.Context, article domain.Article) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Article, error)
	IncrementViews(ctx context.Context, id int64) error
	Search(ctx context.Context, q domain.SearchQuery) (domain.PageResult, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Scheduler controls when scrape runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
