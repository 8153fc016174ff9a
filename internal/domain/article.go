package domain

import "time"

// ThreatLevel ranks the severity assigned by the classifier.
type ThreatLevel string

const (
	ThreatCritical ThreatLevel = "critical"
	ThreatHigh     ThreatLevel = "high"
	ThreatMedium   ThreatLevel = "medium"
	ThreatLow      ThreatLevel = "low"
)

// Valid reports whether the value is one of the four known tiers.
func (t ThreatLevel) Valid() bool {
	switch t {
	case ThreatCritical, ThreatHigh, ThreatMedium, ThreatLow:
		return true
	}
	return false
}

// Severity orders tiers for tie-breaking; higher means more severe.
func (t ThreatLevel) Severity() int {
	switch t {
	case ThreatCritical:
		return 4
	case ThreatHigh:
		return 3
	case ThreatMedium:
		return 2
	case ThreatLow:
		return 1
	}
	return 0
}

// IOCType enumerates indicator kinds the extractor recognizes.
type IOCType string

const (
	IOCIP     IOCType = "ip"
	IOCDomain IOCType = "domain"
	IOCHash   IOCType = "hash"
	IOCEmail  IOCType = "email"
	IOCURL    IOCType = "url"
	IOCCVE    IOCType = "cve"
)

// IOC is a single typed indicator of compromise pulled from article text.
type IOC struct {
	Type  IOCType `json:"type"`
	Value string  `json:"value"`
}

// RawEntry is what a source adapter yields before normalization.
// Any field except URL may be empty.
type RawEntry struct {
	Title        string
	Summary      string
	URL          string
	PublishedRaw string
}

// Candidate is a normalized entry ready for dedup and analysis.
// Summary is bounded for storage; FullText keeps the untruncated body
// that classification and IOC extraction run on.
type Candidate struct {
	Title       string
	Summary     string
	FullText    string
	URL         string
	Fingerprint string
	SourceID    string
	PublishedAt time.Time
}

// Article is the committed unit of record.
type Article struct {
	ID          int64
	URL         string
	Fingerprint string
	Title       string
	Summary     string
	SourceID    string
	PublishedAt time.Time
	IngestedAt  time.Time
	ThreatLevel ThreatLevel
	Confidence  float64
	Tags        []string
	IOCs        []IOC
	Views       int64
}

// Analysis is the classifier+extractor verdict for one text body.
type Analysis struct {
	ThreatLevel ThreatLevel
	Confidence  float64
	Tags        []string
	IOCs        []IOC
}
