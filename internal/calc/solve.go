package calc

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Result is the outcome for one validated expression.
//
// Err == nil: Display holds "<expr> = <value>".
// Err is ErrDivisionByZero: Display holds the user-visible error text.
// Err is ErrInvalidExpression: Display is empty; the caller logs and drops it.
type Result struct {
	Expression string // candidate with whitespace stripped, original ×/÷ glyphs kept
	Value      float64
	Display    string
	Err        error
}

// Solve runs the full pipeline over one message: extract candidates,
// drop the structurally incomplete ones silently, evaluate the rest.
// Results come back in left-to-right order of appearance, and one bad
// candidate never prevents evaluation of its siblings. An empty slice
// means the message contained no (valid) math.
func Solve(text string) []Result {
	var results []Result
	for _, cand := range Extract(text) {
		norm, ok := Validate(cand)
		if !ok {
			continue
		}
		res := Result{Expression: stripSpace(cand)}
		res.Value, res.Err = Evaluate(norm)
		switch {
		case res.Err == nil:
			res.Display = fmt.Sprintf("%s = %s", res.Expression, FormatValue(res.Value))
		case errors.Is(res.Err, ErrDivisionByZero):
			res.Display = fmt.Sprintf("Error: Division by zero in '%s'", res.Expression)
		}
		results = append(results, res)
	}
	return results
}

// stripSpace removes whitespace but keeps the original operator glyphs,
// so replies echo the expression the way the user wrote it.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
