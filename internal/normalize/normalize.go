// Package normalize converts raw source entries into canonical candidates:
// HTML-stripped text, canonical URLs, content fingerprints, and parsed
// publication times with an ingestion-time fallback.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
)

const defaultSummaryMax = 500

// Query parameters stripped during URL canonicalization. utm_* is
// matched by prefix.
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"ref":    {},
	"source": {},
}

var stripPolicy = bluemonday.StrictPolicy()

// Normalizer produces canonical candidates from raw entries.
type Normalizer struct {
	summaryMax int
}

// New builds a normalizer with the given stored-summary bound.
func New(summaryMax int) *Normalizer {
	if summaryMax <= 0 {
		summaryMax = defaultSummaryMax
	}
	return &Normalizer{summaryMax: summaryMax}
}

// Normalize converts one raw entry. The stored summary is truncated to
// the configured bound; FullText keeps the complete body so the
// classifier and extractor see everything the source published.
func (n *Normalizer) Normalize(entry domain.RawEntry, sourceID string, now time.Time) (domain.Candidate, error) {
	canonical, err := CanonicalURL(entry.URL)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("canonicalize url: %w", err)
	}

	title := CollapseWhitespace(StripHTML(entry.Title))
	if title == "" {
		return domain.Candidate{}, fmt.Errorf("entry %s has no title", canonical)
	}
	body := CollapseWhitespace(StripHTML(entry.Summary))

	publishedAt := now
	if entry.PublishedRaw != "" {
		if parsed, err := dateparse.ParseAny(entry.PublishedRaw); err == nil {
			publishedAt = parsed.UTC()
		}
	}

	return domain.Candidate{
		Title:       title,
		Summary:     truncate(body, n.summaryMax),
		FullText:    title + " " + body,
		URL:         canonical,
		Fingerprint: Fingerprint(title, body),
		SourceID:    sourceID,
		PublishedAt: publishedAt,
	}, nil
}

// CanonicalURL lower-cases the scheme and host, strips tracking query
// parameters, and drops the fragment so equivalent links compare equal.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %s is not absolute", raw)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	query := parsed.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if _, tracked := trackingParams[lower]; tracked || strings.HasPrefix(lower, "utm_") {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// StripHTML removes markup and decodes entities, leaving plain text.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// CollapseWhitespace folds runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fingerprint hashes normalized title+summary; it is the secondary dedup
// key for the same story republished under a different URL.
func Fingerprint(title, summary string) string {
	normalized := strings.ToLower(CollapseWhitespace(title)) + "\n" + strings.ToLower(CollapseWhitespace(summary))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
