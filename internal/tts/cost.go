package tts

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// CostEstimator approximates what a backend charges for a document.
// Prices are in US dollars per million billed characters.
type CostEstimator struct {
	pricePerMillion float64
	excluded        []*regexp.Regexp
}

// Azure bills every code point except the document envelope.
var azureExcluded = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\?xml[^>]*\?>`),
	regexp.MustCompile(`(?i)<speak(\s[^>]*)?>`),
	regexp.MustCompile(`(?i)</speak>`),
	regexp.MustCompile(`(?i)<voice(\s[^>]*)?>`),
	regexp.MustCompile(`(?i)</voice>`),
}

// Polly bills only the text, never the tags.
var pollyExcluded = []*regexp.Regexp{
	regexp.MustCompile(`<[^>]*>`),
}

func NewAzureCostEstimator() *CostEstimator {
	return &CostEstimator{pricePerMillion: 16, excluded: azureExcluded}
}

// NewCostEstimator returns the estimator for a backend kind. Unknown kinds
// are priced like Azure.
func NewCostEstimator(kind string) *CostEstimator {
	switch strings.ToLower(kind) {
	case KindGoogle:
		return &CostEstimator{pricePerMillion: 16}
	case KindPolly:
		return &CostEstimator{pricePerMillion: 16, excluded: pollyExcluded}
	default:
		return NewAzureCostEstimator()
	}
}

// BillableCharacters counts code points after removing excluded markup.
func (e *CostEstimator) BillableCharacters(ssml string) int {
	n := utf8.RuneCountInString(ssml)
	for _, re := range e.excluded {
		for _, m := range re.FindAllString(ssml, -1) {
			n -= utf8.RuneCountInString(m)
		}
	}
	return n
}

// Estimate returns the expected cost of synthesizing ssml.
func (e *CostEstimator) Estimate(ssml string) float64 {
	return float64(e.BillableCharacters(ssml)) * e.pricePerMillion / 1_000_000
}
