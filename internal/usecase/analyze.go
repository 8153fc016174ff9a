package usecase

import (
	"fmt"
	"strings"

	"github.com/Rutikm18/ChakraWatch/internal/analysis"
	"github.com/Rutikm18/ChakraWatch/internal/domain"
)

// Analyzer runs classification and IOC extraction directly on
// caller-supplied text, bypassing storage. It shares the same stateless
// engines as ingestion, so it is safe to call concurrently with a
// scrape run.
type Analyzer struct {
	classifier *analysis.Classifier
	extractor  *analysis.Extractor
}

// NewAnalyzer constructs the standalone analyze entry point.
func NewAnalyzer(classifier *analysis.Classifier, extractor *analysis.Extractor) *Analyzer {
	return &Analyzer{classifier: classifier, extractor: extractor}
}

// Analyze classifies the text and extracts its indicators. Empty or
// blank text is rejected.
func (a *Analyzer) Analyze(text string) (domain.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Analysis{}, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}

	level, confidence, tags := a.classifier.Classify(text)
	return domain.Analysis{
		ThreatLevel: level,
		Confidence:  confidence,
		Tags:        tags,
		IOCs:        a.extractor.Extract(text),
	}, nil
}
