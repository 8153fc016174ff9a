package domain

import "time"

// RunState tracks the orchestrator lifecycle for single-flight enforcement.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// SourceOutcome records how one source fared within a scrape run.
type SourceOutcome struct {
	SourceID      string
	Succeeded     bool
	ItemsFetched  int
	ItemsAccepted int
	Error         string
}

// RunSummary is the ephemeral report of a single scrape run.
// It is returned to the trigger and logged, never persisted.
type RunSummary struct {
	RunID            string
	StartedAt        time.Time
	FinishedAt       time.Time
	State            RunState
	SourcesAttempted int
	SourcesSucceeded int
	SourcesFailed    int
	ItemsAccepted    int
	ItemsRejected    int
	Outcomes         []SourceOutcome
}

// Stats summarizes the committed store.
type Stats struct {
	TotalArticles      int64
	ThreatDistribution map[ThreatLevel]int64
	SourceDistribution map[string]int64
	ArticlesWithIOCs   int64
	LastUpdated        *time.Time
}

// PageResult is the shared shape for paginated listing and search.
type PageResult struct {
	Items   []Article
	Total   int64
	Page    int
	PerPage int
	Pages   int
	HasPrev bool
	HasNext bool
}
