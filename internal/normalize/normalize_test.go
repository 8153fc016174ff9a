package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	got, err := CanonicalURL("HTTPS://Example.COM/News/Item?utm_source=rss&utm_medium=feed&id=42#comments")
	if err != nil {
		t.Fatalf("CanonicalURL returned error: %v", err)
	}
	want := "https://example.com/News/Item?id=42"
	if got != want {
		t.Fatalf("canonical mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestCanonicalURLStripsTrackingParams(t *testing.T) {
	t.Parallel()

	got, err := CanonicalURL("https://example.com/a?fbclid=xyz&gclid=abc&ref=tw")
	if err != nil {
		t.Fatalf("CanonicalURL returned error: %v", err)
	}
	if got != "https://example.com/a" {
		t.Fatalf("tracking params survived: %s", got)
	}
}

func TestCanonicalURLRejectsRelative(t *testing.T) {
	t.Parallel()

	if _, err := CanonicalURL("/just/a/path"); err == nil {
		t.Fatalf("expected error for relative url")
	}
	if _, err := CanonicalURL(""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	got := StripHTML("<p>Breaking: <b>AT&amp;T</b> patches <a href=\"#\">flaw</a></p>")
	if strings.Contains(got, "<") || strings.Contains(got, "&amp;") {
		t.Fatalf("markup survived: %q", got)
	}
	if !strings.Contains(got, "AT&T") {
		t.Fatalf("entity not decoded: %q", got)
	}
}

func TestFingerprintStableAcrossFormatting(t *testing.T) {
	t.Parallel()

	a := Fingerprint("Ransomware  Hits   Hospital", "Attackers  demand payment")
	b := Fingerprint("ransomware hits hospital", "attackers demand payment")
	if a != b {
		t.Fatalf("fingerprint should ignore case and spacing: %s vs %s", a, b)
	}

	c := Fingerprint("Different headline", "Attackers demand payment")
	if a == c {
		t.Fatalf("different titles must fingerprint differently")
	}
}

func TestNormalizeEntry(t *testing.T) {
	t.Parallel()

	n := New(40)
	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)

	entry := domain.RawEntry{
		Title:        "  <b>Zero-day</b> in widget server  ",
		Summary:      "<p>" + strings.Repeat("attack details ", 20) + "</p>",
		URL:          "HTTP://News.Example/post?utm_campaign=x",
		PublishedRaw: "2026-08-19T09:30:00Z",
	}

	candidate, err := n.Normalize(entry, "security_affairs", now)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if candidate.Title != "Zero-day in widget server" {
		t.Fatalf("unexpected title: %q", candidate.Title)
	}
	if candidate.URL != "http://news.example/post" {
		t.Fatalf("unexpected url: %q", candidate.URL)
	}
	if candidate.SourceID != "security_affairs" {
		t.Fatalf("unexpected source: %q", candidate.SourceID)
	}
	if len([]rune(candidate.Summary)) > 40 {
		t.Fatalf("summary not truncated: %d runes", len([]rune(candidate.Summary)))
	}
	if !strings.Contains(candidate.FullText, strings.TrimSpace(strings.Repeat("attack details ", 20))) {
		t.Fatalf("full text must keep the untruncated body")
	}
	want := time.Date(2026, time.August, 19, 9, 30, 0, 0, time.UTC)
	if !candidate.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time: %v", candidate.PublishedAt)
	}
}

func TestNormalizeFallsBackToIngestionTime(t *testing.T) {
	t.Parallel()

	n := New(0)
	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)

	for _, raw := range []string{"", "not a date at all"} {
		candidate, err := n.Normalize(domain.RawEntry{
			Title:        "Advisory",
			URL:          "https://example.com/a",
			PublishedRaw: raw,
		}, "cyware", now)
		if err != nil {
			t.Fatalf("Normalize returned error for %q: %v", raw, err)
		}
		if !candidate.PublishedAt.Equal(now) {
			t.Fatalf("expected ingestion-time fallback for %q, got %v", raw, candidate.PublishedAt)
		}
	}
}

func TestNormalizeRequiresTitle(t *testing.T) {
	t.Parallel()

	n := New(0)
	_, err := n.Normalize(domain.RawEntry{URL: "https://example.com/x"}, "cyware", time.Now())
	if err == nil {
		t.Fatalf("expected error for missing title")
	}
}
