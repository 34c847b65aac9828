package calc

import (
	"errors"
	"strings"
	"unicode"
)

// Normalize strips all whitespace from a candidate and maps the ×/÷
// glyphs to * and /.
func Normalize(candidate string) string {
	var b strings.Builder
	b.Grow(len(candidate))
	for _, r := range candidate {
		switch {
		case unicode.IsSpace(r):
		case r == '×':
			b.WriteByte('*')
		case r == '÷':
			b.WriteByte('/')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate decides whether a candidate is structurally complete before it
// is evaluated for real. It returns the normalized form on success.
// Rejected: a trailing operator (message cut off mid-expression, "5+"),
// a leading * or / (no left operand), no operator at all, and anything
// the evaluator cannot parse. A trial evaluation is the final syntactic
// check; division by zero still counts as structurally valid so that it
// reaches the caller as its own error.
func Validate(candidate string) (string, bool) {
	norm := Normalize(candidate)
	if norm == "" {
		return "", false
	}
	if strings.ContainsAny(norm[len(norm)-1:], "+-*/") {
		return "", false
	}
	if norm[0] == '*' || norm[0] == '/' {
		return "", false
	}
	// Leading +/- is a unary sign, not an operator.
	if !strings.ContainsAny(norm[1:], "+-*/") {
		return "", false
	}
	if _, err := Evaluate(norm); err != nil && !errors.Is(err, ErrDivisionByZero) {
		return "", false
	}
	return norm, true
}
