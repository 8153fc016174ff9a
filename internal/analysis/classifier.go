// Package analysis holds the stateless text analysis engines: rule-based
// threat classification and typed IOC extraction. Both compile their
// rule tables once and are safe for concurrent use.
package analysis

import (
	"regexp"

	"github.com/Rutikm18/ChakraWatch/internal/domain"
)

// severityOrder walks tiers from most to least severe; ties between
// tier scores resolve toward the earlier entry.
var severityOrder = []domain.ThreatLevel{
	domain.ThreatCritical,
	domain.ThreatHigh,
	domain.ThreatMedium,
	domain.ThreatLow,
}

type rule struct {
	term    string
	weight  float64
	pattern *regexp.Regexp
}

// Classifier scores text against a weighted keyword lexicon.
type Classifier struct {
	rules   map[domain.ThreatLevel][]rule
	ceiling float64
}

// NewClassifier compiles the default lexicon.
func NewClassifier() *Classifier {
	return NewClassifierWithLexicon(DefaultLexicon())
}

// NewClassifierWithLexicon compiles a caller-supplied rule table, used by
// tests to exercise the scoring algorithm in isolation.
func NewClassifierWithLexicon(lexicon Lexicon) *Classifier {
	rules := make(map[domain.ThreatLevel][]rule, len(lexicon))
	for tier, entries := range lexicon {
		compiled := make([]rule, 0, len(entries))
		for _, entry := range entries {
			compiled = append(compiled, rule{
				term:    entry.Term,
				weight:  entry.Weight,
				pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(entry.Term) + `\b`),
			})
		}
		rules[tier] = compiled
	}
	return &Classifier{rules: rules, ceiling: scoreCeiling}
}

// Classify assigns a threat tier, confidence, and the matched terms.
// Each lexicon term contributes its weight once when it appears
// (case-insensitive, word-boundary matched); per-tier scores are summed,
// the highest score wins, exact ties resolve to the higher-severity tier,
// and confidence is the winning score normalized against a fixed ceiling
// and clamped to [0,1]. Text matching nothing is low severity with zero
// confidence, not an error.
func (c *Classifier) Classify(text string) (domain.ThreatLevel, float64, []string) {
	scores := make(map[domain.ThreatLevel]float64, len(severityOrder))
	tags := make([]string, 0, 4)
	seen := make(map[string]struct{})

	for _, tier := range severityOrder {
		for _, r := range c.rules[tier] {
			if r.pattern.MatchString(text) {
				scores[tier] += r.weight
				if _, dup := seen[r.term]; !dup {
					seen[r.term] = struct{}{}
					tags = append(tags, r.term)
				}
			}
		}
	}

	winner := domain.ThreatLow
	best := 0.0
	for _, tier := range severityOrder {
		if scores[tier] > best {
			best = scores[tier]
			winner = tier
		}
	}

	if best == 0 {
		return domain.ThreatLow, 0.0, nil
	}

	confidence := best / c.ceiling
	if confidence > 1.0 {
		confidence = 1.0
	}

	return winner, confidence, tags
}
