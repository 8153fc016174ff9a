package domain

import "errors"

var (
	// ErrInvalidInput rejects malformed caller input (empty analyze text,
	// non-positive page, unknown threat level).
	ErrInvalidInput = errors.New("invalid input")

	// ErrRunActive rejects a scrape trigger while another run is in flight.
	ErrRunActive = errors.New("scrape run already active")

	// ErrNotFound reports a missing article id.
	ErrNotFound = errors.New("article not found")
)
