package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
	"github.com/Rutikm18/ChakraWatch/internal/ports"
)

const timeLayout = time.RFC3339

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	fingerprint TEXT NOT NULL,
	title TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	source_id TEXT NOT NULL,
	published_at TEXT NOT NULL,
	ingested_at TEXT NOT NULL,
	threat_level TEXT NOT NULL,
	confidence REAL NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	iocs TEXT NOT NULL DEFAULT '[]',
	views INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source_id);
CREATE INDEX IF NOT EXISTS idx_articles_threat ON articles(threat_level);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_fingerprint ON articles(fingerprint);
`

var articleColumns = []string{
	"id", "url", "fingerprint", "title", "summary", "source_id",
	"published_at", "ingested_at", "threat_level", "confidence",
	"tags", "iocs", "views",
}

// SQLiteRepository persists articles into SQLite. Writes are serialized
// by a mutex so a commit is never interleaved; readers only observe
// committed rows.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

var _ ports.ArticleRepository = (*SQLiteRepository)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL lets readers proceed while a commit is in flight.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the underlying connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// HasURL reports whether an article with the canonical URL exists.
func (r *SQLiteRepository) HasURL(ctx context.Context, url string) (bool, error) {
	return r.exists(ctx, sq.Eq{"url": url})
}

// HasFingerprint reports whether any article carries the fingerprint.
func (r *SQLiteRepository) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	return r.exists(ctx, sq.Eq{"fingerprint": fingerprint})
}

func (r *SQLiteRepository) exists(ctx context.Context, cond sq.Eq) (bool, error) {
	query, args, err := sq.Select("1").From("articles").Where(cond).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query existence: %w", err)
	}
	return true, nil
}

// Save commits one accepted article and returns its assigned id.
func (r *SQLiteRepository) Save(ctx context.Context, article domain.Article) (int64, error) {
	tags, err := json.Marshal(emptyIfNilTags(article.Tags))
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	iocs, err := json.Marshal(emptyIfNilIOCs(article.IOCs))
	if err != nil {
		return 0, fmt.Errorf("marshal iocs: %w", err)
	}

	query, args, err := sq.Insert("articles").
		Columns("url", "fingerprint", "title", "summary", "source_id",
			"published_at", "ingested_at", "threat_level", "confidence",
			"tags", "iocs", "views").
		Values(article.URL, article.Fingerprint, article.Title, article.Summary,
			article.SourceID,
			article.PublishedAt.UTC().Format(timeLayout),
			article.IngestedAt.UTC().Format(timeLayout),
			string(article.ThreatLevel), article.Confidence,
			string(tags), string(iocs), article.Views).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}
	return id, nil
}

// GetByID loads one article.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := sq.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build query: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("load article %d: %w", id, err)
	}
	return article, nil
}

// IncrementViews bumps the view counter; the ingestion pipeline never
// calls this.
func (r *SQLiteRepository) IncrementViews(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, "UPDATE articles SET views = views + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Search applies conjunctive filters, orders newest-first with id as the
// tiebreak, and paginates. An out-of-range page yields an empty page.
func (r *SQLiteRepository) Search(ctx context.Context, q domain.SearchQuery) (domain.PageResult, error) {
	conds := buildConditions(q)

	countQuery := sq.Select("COUNT(*)").From("articles")
	for _, cond := range conds {
		countQuery = countQuery.Where(cond)
	}
	query, args, err := countQuery.ToSql()
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("build count: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return domain.PageResult{}, fmt.Errorf("count articles: %w", err)
	}

	pages := int((total + int64(q.PerPage) - 1) / int64(q.PerPage))

	result := domain.PageResult{
		Items:   []domain.Article{},
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
		Pages:   pages,
		HasPrev: q.Page > 1 && total > 0,
		HasNext: q.Page < pages,
	}

	offset := uint64(q.Page-1) * uint64(q.PerPage)
	if total == 0 || offset >= uint64(total) {
		return result, nil
	}

	selectQuery := sq.Select(articleColumns...).From("articles").
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(q.PerPage)).
		Offset(offset)
	for _, cond := range conds {
		selectQuery = selectQuery.Where(cond)
	}
	query, args, err = selectQuery.ToSql()
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return domain.PageResult{}, fmt.Errorf("scan article: %w", err)
		}
		result.Items = append(result.Items, article)
	}
	if err := rows.Err(); err != nil {
		return domain.PageResult{}, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

func buildConditions(q domain.SearchQuery) []sq.Sqlizer {
	var conds []sq.Sqlizer

	if len(q.Keywords) > 0 {
		keywordOr := sq.Or{}
		for _, keyword := range q.Keywords {
			like := "%" + keyword + "%"
			keywordOr = append(keywordOr,
				sq.Like{"title": like},
				sq.Like{"summary": like},
				sq.Like{"tags": like},
			)
		}
		conds = append(conds, keywordOr)
	}

	if len(q.ThreatLevels) > 0 {
		levels := make([]string, 0, len(q.ThreatLevels))
		for _, level := range q.ThreatLevels {
			levels = append(levels, string(level))
		}
		conds = append(conds, sq.Eq{"threat_level": levels})
	}

	if len(q.Sources) > 0 {
		conds = append(conds, sq.Eq{"source_id": q.Sources})
	}

	if q.DateFrom != nil {
		conds = append(conds, sq.GtOrEq{"published_at": q.DateFrom.UTC().Format(timeLayout)})
	}
	if q.DateTo != nil {
		conds = append(conds, sq.LtOrEq{"published_at": q.DateTo.UTC().Format(timeLayout)})
	}

	if q.HasIOCs != nil {
		if *q.HasIOCs {
			conds = append(conds, sq.NotEq{"iocs": "[]"})
		} else {
			conds = append(conds, sq.Eq{"iocs": "[]"})
		}
	}

	return conds
}

// Stats aggregates distribution summaries over the whole store.
func (r *SQLiteRepository) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{
		ThreatDistribution: map[domain.ThreatLevel]int64{},
		SourceDistribution: map[string]int64{},
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&stats.TotalArticles); err != nil {
		return domain.Stats{}, fmt.Errorf("count articles: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT threat_level, COUNT(*) FROM articles GROUP BY threat_level")
	if err != nil {
		return domain.Stats{}, fmt.Errorf("threat distribution: %w", err)
	}
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			rows.Close()
			return domain.Stats{}, fmt.Errorf("scan threat row: %w", err)
		}
		stats.ThreatDistribution[domain.ThreatLevel(level)] = count
	}
	if err := closeRows(rows); err != nil {
		return domain.Stats{}, err
	}

	rows, err = r.db.QueryContext(ctx, "SELECT source_id, COUNT(*) FROM articles GROUP BY source_id")
	if err != nil {
		return domain.Stats{}, fmt.Errorf("source distribution: %w", err)
	}
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			rows.Close()
			return domain.Stats{}, fmt.Errorf("scan source row: %w", err)
		}
		stats.SourceDistribution[source] = count
	}
	if err := closeRows(rows); err != nil {
		return domain.Stats{}, err
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles WHERE iocs != '[]'").Scan(&stats.ArticlesWithIOCs); err != nil {
		return domain.Stats{}, fmt.Errorf("count articles with iocs: %w", err)
	}

	var last sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(ingested_at) FROM articles").Scan(&last); err != nil {
		return domain.Stats{}, fmt.Errorf("last updated: %w", err)
	}
	if last.Valid {
		parsed, err := time.Parse(timeLayout, last.String)
		if err != nil {
			return domain.Stats{}, fmt.Errorf("parse last updated: %w", err)
		}
		stats.LastUpdated = &parsed
	}

	return stats, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close rows: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		article     domain.Article
		publishedAt string
		ingestedAt  string
		threatLevel string
		tagsJSON    string
		iocsJSON    string
	)

	err := row.Scan(&article.ID, &article.URL, &article.Fingerprint,
		&article.Title, &article.Summary, &article.SourceID,
		&publishedAt, &ingestedAt, &threatLevel, &article.Confidence,
		&tagsJSON, &iocsJSON, &article.Views)
	if err != nil {
		return domain.Article{}, err
	}

	article.ThreatLevel = domain.ThreatLevel(threatLevel)
	if article.PublishedAt, err = time.Parse(timeLayout, publishedAt); err != nil {
		return domain.Article{}, fmt.Errorf("parse published_at: %w", err)
	}
	if article.IngestedAt, err = time.Parse(timeLayout, ingestedAt); err != nil {
		return domain.Article{}, fmt.Errorf("parse ingested_at: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &article.Tags); err != nil {
		return domain.Article{}, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(iocsJSON), &article.IOCs); err != nil {
		return domain.Article{}, fmt.Errorf("decode iocs: %w", err)
	}

	return article, nil
}

func emptyIfNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func emptyIfNilIOCs(iocs []domain.IOC) []domain.IOC {
	if iocs == nil {
		return []domain.IOC{}
	}
	return iocs
}
