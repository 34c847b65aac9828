// Package calc is the arithmetic pipeline: extract candidate expressions
// from free text, validate them, evaluate them under a four-operator
// grammar, and format the results for display. It holds no state and is
// safe to call from any number of goroutines.
package calc

import "regexp"

// exprPattern matches NUMBER (OPERATOR NUMBER)+ with optional whitespace
// around operators. The ×/÷ glyphs are accepted and normalized later.
// Word boundaries keep the pattern from firing inside a larger
// alphanumeric token such as an order code.
var exprPattern = regexp.MustCompile(`[-+]?\b\d+(?:\.\d+)?(?:\s*[-+*/×÷]\s*\d+(?:\.\d+)?)+\b`)

// Extract returns the candidate expressions found in text, in order of
// appearance. A bare number is never a candidate: at least one operator
// is required. An empty result means "no math found" and is not an error.
func Extract(text string) []string {
	return exprPattern.FindAllString(text, -1)
}
