package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Rutikm18/ChakraWatch/internal/config"
	"github.com/Rutikm18/ChakraWatch/internal/domain"
	"github.com/Rutikm18/ChakraWatch/internal/scanner"
)

const userAgent = "ChakraWatch/1.0"

// Adapter fetches syndication feeds (RSS/Atom) and yields raw entries.
type Adapter struct {
	client *http.Client
	parser *gofeed.Parser
}

var _ scanner.Scanner = (*Adapter)(nil)

// NewAdapter wires an HTTP client; per-source timeouts come from the
// request context, so the client itself carries only a safety ceiling.
func NewAdapter(client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Adapter{client: client, parser: gofeed.NewParser()}
}

// Kind identifies the strategy inside the registry.
func (a *Adapter) Kind() string {
	return config.KindFeed
}

// Fetch downloads the feed and converts its items, capped at the source limit.
func (a *Adapter) Fetch(ctx context.Context, src config.SourceConfig) ([]domain.RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s returned %s", src.ID, resp.Status)
	}

	parsed, err := a.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]domain.RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if src.MaxItems > 0 && len(entries) >= src.MaxItems {
			break
		}
		if item.Link == "" || item.Title == "" {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		published := item.Published
		if published == "" {
			published = item.Updated
		}

		entries = append(entries, domain.RawEntry{
			Title:        item.Title,
			Summary:      summary,
			URL:          item.Link,
			PublishedRaw: published,
		})
	}

	return entries, nil
}
