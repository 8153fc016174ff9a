package domain

import "time"

// SearchQuery carries every filter dimension the search engine accepts.
// Filters combine conjunctively; a supplied keyword list requires at
// least one keyword to match.
type SearchQuery struct {
	Keywords     []string
	ThreatLevels []ThreatLevel
	Sources      []string
	DateFrom     *time.Time
	DateTo       *time.Time
	HasIOCs      *bool
	Page         int
	PerPage      int
}
