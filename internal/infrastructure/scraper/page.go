package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Rutikm18/ChakraWatch/internal/config"
	"github.com/Rutikm18/ChakraWatch/internal/domain"
	"github.com/Rutikm18/ChakraWatch/internal/scanner"
)

const userAgent = "ChakraWatch/1.0"

// Per-source extraction rules carried in SourceConfig.Options.
const (
	optContainer = "container"
	optTitle     = "title"
	optLink      = "link"
	optSummary   = "summary"
	optDate      = "date"
)

// Defaults cover the common listing-page shape: article elements with a
// heading link and a paragraph teaser.
var defaultSelectors = map[string]string{
	optContainer: "article",
	optTitle:     "h1, h2, h3, h4",
	optLink:      "a",
	optSummary:   "p",
}

// PageScraper crawls listing pages and extracts entry elements with a
// per-source selector rule.
type PageScraper struct {
	client *http.Client
}

var _ scanner.Scanner = (*PageScraper)(nil)

// NewPageScraper wires an HTTP client; per-source timeouts come from the
// request context.
func NewPageScraper(client *http.Client) *PageScraper {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &PageScraper{client: client}
}

// Kind identifies the strategy inside the registry.
func (p *PageScraper) Kind() string {
	return config.KindPage
}

// Fetch downloads the listing page and scrapes entry elements, capped at
// the source item limit.
func (p *PageScraper) Fetch(ctx context.Context, src config.SourceConfig) ([]domain.RawEntry, error) {
	doc, err := p.fetchDocument(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", src.URL, err)
	}

	sel := func(key string) string {
		if v, ok := src.Options[key]; ok && v != "" {
			return v
		}
		return defaultSelectors[key]
	}

	var entries []domain.RawEntry
	doc.Find(sel(optContainer)).EachWithBreak(func(i int, container *goquery.Selection) bool {
		if src.MaxItems > 0 && len(entries) >= src.MaxItems {
			return false
		}

		entry, ok := parseContainer(container, base, sel)
		if !ok {
			return true
		}
		entries = append(entries, entry)
		return true
	})

	return entries, nil
}

func (p *PageScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// parseContainer extracts one raw entry from a listing element. Entries
// without a title or a resolvable link are skipped.
func parseContainer(container *goquery.Selection, base *url.URL, sel func(string) string) (domain.RawEntry, bool) {
	titleElem := container.Find(sel(optTitle)).First()
	if titleElem.Length() == 0 {
		return domain.RawEntry{}, false
	}
	title := strings.TrimSpace(titleElem.Text())
	if title == "" {
		return domain.RawEntry{}, false
	}

	link := titleElem.Find("a").First()
	if link.Length() == 0 {
		link = container.Find(sel(optLink)).First()
	}
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return domain.RawEntry{}, false
	}
	if ref, err := url.Parse(href); err == nil {
		href = base.ResolveReference(ref).String()
	}

	summary := strings.TrimSpace(container.Find(sel(optSummary)).First().Text())

	var published string
	if dateSel := sel(optDate); dateSel != "" {
		published = strings.TrimSpace(container.Find(dateSel).First().Text())
	}

	return domain.RawEntry{
		Title:        title,
		Summary:      summary,
		URL:          href,
		PublishedRaw: published,
	}, true
}
