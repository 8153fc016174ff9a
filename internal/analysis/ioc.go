package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
)

// Defanged notations reversed before pattern matching. Symbol forms are
// handled by the replacer; word forms ([dot], (at), hxxp) need
// case-insensitive regexes.
var (
	refangReplacer = strings.NewReplacer(
		"[.]", ".",
		"(.)", ".",
		"[:]", ":",
		"[@]", "@",
		"[//]", "//",
	)
	refangDot    = regexp.MustCompile(`(?i)[\[\(]dot[\]\)]`)
	refangAt     = regexp.MustCompile(`(?i)[\[\(]at[\]\)]`)
	refangScheme = regexp.MustCompile(`(?i)hxxp`)
)

// Extraction patterns, applied in an order that prevents double-counting
// overlapping spans: once an earlier pattern consumes a span, later
// patterns skip it.
var (
	cvePattern    = regexp.MustCompile(`(?i)\bCVE-\d{4}-\d{4,7}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	urlPattern    = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+`)
	domainPattern = regexp.MustCompile(`\b[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}\b`)
	ipPattern     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	hashPattern   = regexp.MustCompile(`\b[a-fA-F0-9]{32,64}\b`)
)

type span struct {
	start, end int
}

func (s span) overlaps(other span) bool {
	return s.start < other.end && other.start < s.end
}

// Extractor scans text for typed indicators of compromise.
type Extractor struct{}

// NewExtractor returns the stateless extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Refang reverses common defanged notations (bracketed dots, hxxp
// schemes) so the extraction patterns match. Stored article text is
// never modified; this applies to the matching pass only.
func Refang(text string) string {
	text = refangReplacer.Replace(text)
	text = refangDot.ReplaceAllString(text, ".")
	text = refangAt.ReplaceAllString(text, "@")
	text = refangScheme.ReplaceAllString(text, "http")
	return text
}

// Extract returns the ordered, deduplicated indicators found in text.
// Pattern order: CVE, email, URL, domain, IPv4, hash (md5/sha1/sha256 by
// exact hex length 32/40/64). Duplicate (type, value) pairs collapse.
func (e *Extractor) Extract(text string) []domain.IOC {
	text = Refang(text)

	var (
		iocs     []domain.IOC
		consumed []span
		dedup    = make(map[domain.IOC]struct{})
	)

	scan := func(pattern *regexp.Regexp, typ domain.IOCType, accept func(string) (string, bool)) {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			candidate := span{start: loc[0], end: loc[1]}
			taken := false
			for _, used := range consumed {
				if candidate.overlaps(used) {
					taken = true
					break
				}
			}
			if taken {
				continue
			}

			value, ok := accept(text[loc[0]:loc[1]])
			if !ok {
				continue
			}

			consumed = append(consumed, candidate)
			ioc := domain.IOC{Type: typ, Value: value}
			if _, dup := dedup[ioc]; dup {
				continue
			}
			dedup[ioc] = struct{}{}
			iocs = append(iocs, ioc)
		}
	}

	scan(cvePattern, domain.IOCCVE, func(v string) (string, bool) {
		return strings.ToUpper(v), true
	})
	scan(emailPattern, domain.IOCEmail, func(v string) (string, bool) {
		return strings.ToLower(v), true
	})
	scan(urlPattern, domain.IOCURL, func(v string) (string, bool) {
		return strings.TrimRight(v, ".,;:!?)\"'"), true
	})
	scan(domainPattern, domain.IOCDomain, func(v string) (string, bool) {
		if len(v) <= 4 || !strings.Contains(v, ".") {
			return "", false
		}
		return strings.ToLower(v), true
	})
	scan(ipPattern, domain.IOCIP, func(v string) (string, bool) {
		return v, validIPv4(v)
	})
	scan(hashPattern, domain.IOCHash, func(v string) (string, bool) {
		switch len(v) {
		case 32, 40, 64: // md5, sha1, sha256
			return strings.ToLower(v), true
		}
		return "", false
	})

	return iocs
}

func validIPv4(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		octet, err := strconv.Atoi(part)
		if err != nil || octet < 0 || octet > 255 {
			return false
		}
	}
	return true
}
