package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// EvalFormula evaluates a restricted arithmetic expression over bound
// numeric variables. Only `+ - * / ( )`, numeric literals and variable
// names are accepted; a variable the expression references but the
// mapping does not contain evaluates to 0. A non-finite result is an
// error so callers never propagate NaN or Infinity into totals.
func EvalFormula(expression string, vars map[string]float64) (float64, error) {
	p := &formulaParser{tokens: nil, vars: vars}
	if err := p.tokenize(expression); err != nil {
		return 0, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("unexpected token %q", p.tokens[p.pos].text)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("expression %q produced a non-finite result", expression)
	}
	return value, nil
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenVariable
	tokenOperator
)

type token struct {
	kind tokenKind
	text string
}

type formulaParser struct {
	tokens []token
	pos    int
	vars   map[string]float64
}

func (p *formulaParser) tokenize(expression string) error {
	runes := []rune(expression)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("+-*/()", r):
			p.tokens = append(p.tokens, token{kind: tokenOperator, text: string(r)})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return fmt.Errorf("invalid number %q", text)
			}
			p.tokens = append(p.tokens, token{kind: tokenNumber, text: text})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			p.tokens = append(p.tokens, token{kind: tokenVariable, text: string(runes[start:i])})
		default:
			return fmt.Errorf("unexpected character %q", string(r))
		}
	}
	return nil
}

func (p *formulaParser) peek() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *formulaParser) acceptOperator(ops string) *token {
	t := p.peek()
	if t != nil && t.kind == tokenOperator && strings.Contains(ops, t.text) {
		p.pos++
		return t
	}
	return nil
}

func (p *formulaParser) parseExpression() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op := p.acceptOperator("+-")
		if op == nil {
			return value, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op.text == "+" {
			value += right
		} else {
			value -= right
		}
	}
}

func (p *formulaParser) parseTerm() (float64, error) {
	value, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.acceptOperator("*/")
		if op == nil {
			return value, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op.text == "*" {
			value *= right
		} else {
			value /= right
		}
	}
}

func (p *formulaParser) parseUnary() (float64, error) {
	if p.acceptOperator("-") != nil {
		value, err := p.parseUnary()
		return -value, err
	}
	return p.parsePrimary()
}

func (p *formulaParser) parsePrimary() (float64, error) {
	t := p.peek()
	if t == nil {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	switch t.kind {
	case tokenNumber:
		p.pos++
		return strconv.ParseFloat(t.text, 64)
	case tokenVariable:
		p.pos++
		// unbound variables contribute nothing
		return p.vars[t.text], nil
	case tokenOperator:
		if t.text == "(" {
			p.pos++
			value, err := p.parseExpression()
			if err != nil {
				return 0, err
			}
			if p.acceptOperator(")") == nil {
				return 0, fmt.Errorf("missing closing parenthesis")
			}
			return value, nil
		}
	}
	return 0, fmt.Errorf("unexpected token %q", t.text)
}
