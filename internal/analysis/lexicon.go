package analysis

import "github.com/Rutikm18/ChakraWatch/internal/domain"

// Entry binds one lexicon term to the weight it contributes when the
// term appears in a text.
type Entry struct {
	Term   string
	Weight float64
}

// Lexicon is the classification rule table, partitioned by tier.
type Lexicon map[domain.ThreatLevel][]Entry

// scoreCeiling normalizes the winning tier score into a confidence.
const scoreCeiling = 10.0

// DefaultLexicon is the built-in rule table. Baseline weights are 4/3/2/1
// per tier; phrases that almost always indicate active exploitation carry
// a bump above the critical baseline.
func DefaultLexicon() Lexicon {
	return Lexicon{
		domain.ThreatCritical: {
			{Term: "zero-day", Weight: 5.0},
			{Term: "0day", Weight: 5.0},
			{Term: "actively exploited", Weight: 5.0},
			{Term: "critical vulnerability", Weight: 4.0},
			{Term: "ransomware", Weight: 4.0},
			{Term: "data breach", Weight: 4.0},
			{Term: "supply chain attack", Weight: 4.0},
			{Term: "rce", Weight: 4.0},
			{Term: "remote code execution", Weight: 4.0},
			{Term: "critical security flaw", Weight: 4.0},
			{Term: "emergency patch", Weight: 4.0},
		},
		domain.ThreatHigh: {
			{Term: "vulnerability", Weight: 3.0},
			{Term: "exploit", Weight: 3.0},
			{Term: "malware", Weight: 3.0},
			{Term: "phishing", Weight: 3.0},
			{Term: "apt", Weight: 3.0},
			{Term: "backdoor", Weight: 3.0},
			{Term: "trojan", Weight: 3.0},
			{Term: "sql injection", Weight: 3.0},
			{Term: "privilege escalation", Weight: 3.0},
			{Term: "security flaw", Weight: 3.0},
			{Term: "code execution", Weight: 3.0},
			{Term: "buffer overflow", Weight: 3.0},
		},
		domain.ThreatMedium: {
			{Term: "security update", Weight: 2.0},
			{Term: "patch", Weight: 2.0},
			{Term: "warning", Weight: 2.0},
			{Term: "alert", Weight: 2.0},
			{Term: "mitigation", Weight: 2.0},
			{Term: "workaround", Weight: 2.0},
			{Term: "security advisory", Weight: 2.0},
			{Term: "authentication bypass", Weight: 2.0},
			{Term: "information disclosure", Weight: 2.0},
			{Term: "denial of service", Weight: 2.0},
		},
		domain.ThreatLow: {
			{Term: "security news", Weight: 1.0},
			{Term: "announcement", Weight: 1.0},
			{Term: "report", Weight: 1.0},
			{Term: "advisory", Weight: 1.0},
			{Term: "awareness", Weight: 1.0},
			{Term: "security tip", Weight: 1.0},
			{Term: "best practices", Weight: 1.0},
		},
	}
}
