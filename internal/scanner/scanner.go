package scanner

import (
	"context"
	"fmt"

	"github.com/Rutikm18/ChakraWatch/internal/config"
	"github.com/Rutikm18/ChakraWatch/internal/domain"
)

// Scanner captures a single fetch strategy (feed parsing, page scraping).
// Implementations must honor the source timeout carried by ctx and the
// source item cap, and return structured errors instead of panicking.
type Scanner interface {
	Kind() string
	Fetch(ctx context.Context, src config.SourceConfig) ([]domain.RawEntry, error)
}

// Registry keeps a mapping from fetch kinds to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Kind()] = scanner
}

// Resolve returns a scanner by fetch kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Scanner, error) {
	if scanner, ok := r.scanners[kind]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner kind %s is not registered", kind)
}
