package calc

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrDivisionByZero is reported to the user.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidExpression is logged but never sent as a reply.
	ErrInvalidExpression = errors.New("invalid expression")
)

// Evaluate computes a normalized arithmetic string (operators already
// mapped to + - * /, whitespace permitted) with a purpose-built
// recursive-descent parser. The grammar admits numeric literals and the
// four binary operators, nothing else: no identifiers, no calls, no
// parentheses. Untrusted chat text reaches this function directly, and
// the grammar itself is the sandbox. Multiplication and division bind
// tighter than addition and subtraction; operators of equal precedence
// associate left. A unary + or - is accepted on the leading number only.
func Evaluate(expr string) (float64, error) {
	p := &parser{input: expr}
	v, err := p.sum()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("%w: unexpected %q at offset %d", ErrInvalidExpression, p.input[p.pos], p.pos)
	}
	return v, nil
}

type parser struct {
	input string
	pos   int
}

// sum := product (("+" | "-") product)*
func (p *parser) sum() (float64, error) {
	v, err := p.product(true)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return v, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return v, nil
		}
		p.pos++
		rhs, err := p.product(false)
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

// product := number (("*" | "/") number)*
func (p *parser) product(leading bool) (float64, error) {
	v, err := p.number(leading)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return v, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return v, nil
		}
		p.pos++
		rhs, err := p.number(false)
		if err != nil {
			return 0, err
		}
		if op == '*' {
			v *= rhs
		} else {
			if rhs == 0 {
				return 0, ErrDivisionByZero
			}
			v /= rhs
		}
	}
}

// number := ["+" | "-"] digits ["." digits]
// The sign is only accepted for the leading number of the expression.
func (p *parser) number(leading bool) (float64, error) {
	p.skipSpace()
	start := p.pos
	if leading && p.pos < len(p.input) && (p.input[p.pos] == '+' || p.input[p.pos] == '-') {
		p.pos++
	}
	if p.scanDigits() == 0 {
		return 0, fmt.Errorf("%w: number expected at offset %d", ErrInvalidExpression, start)
	}
	if p.pos < len(p.input) && p.input[p.pos] == '.' {
		p.pos++
		if p.scanDigits() == 0 {
			return 0, fmt.Errorf("%w: digits expected after decimal point at offset %d", ErrInvalidExpression, p.pos)
		}
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, p.input[start:p.pos])
	}
	return v, nil
}

func (p *parser) scanDigits() int {
	n := 0
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
		n++
	}
	return n
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
