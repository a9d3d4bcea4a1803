package linecalc

import (
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Expression = Term { ('+' | '-') Term }
// Term = Power { ('*' | '/' | '%') Power }
// Power = Factor [ '^' Power ]
// Factor = num | name | '(' Expression ')' | '-' Factor

// Expr is a parsed expression that can be evaluated with an Engine.
type Expr struct {
	// n is the root node of the expression.
	n *node
	// names is the list of variable names used in the expression.
	names []string
}

// Parse parses one expression so it can be evaluated with an Engine. The given
// options are applied in order.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Expr, error) {
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	return parse(src, 0, p)
}

// parse parses an expression from src, reporting positions as if col runes
// preceded it.
func parse(src io.RuneScanner, col int, p parsectx) (*Expr, error) {
	scan := lex(src, col)
	p.names = make(map[string]bool)
	n, err := parseexpr(scan, &p)
	if err != nil {
		return nil, err
	}
	if !p.trailing {
		tok, err := scan.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenEOF: // do nothing
		case tokenClose:
			return nil, &BracketError{Col: tok.pos, Right: tok.text}
		default:
			return nil, &TokenError{Col: tok.pos, Text: tok.text, Want: "end of input"}
		}
	}
	ex := Expr{
		n:     n,
		names: make([]string, 0, len(p.names)),
	}
	for k := range p.names {
		ex.names = append(ex.names, k)
	}
	sort.Strings(ex.names)
	return &ex, nil
}

// parseexpr parses a sum of terms. If there is no error, the token following
// the expression is pushed back to scan.
func parseexpr(scan *lexer, p *parsectx) (*node, error) {
	n, err := parseterm(scan, p)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := scan.next()
		if err != nil {
			return nil, err
		}
		var kind nodeKind
		switch {
		case tok.kind == tokenOp && tok.text == "+":
			kind = nodeAdd
		case tok.kind == tokenOp && tok.text == "-":
			kind = nodeSub
		default:
			scan.push(tok)
			return n, nil
		}
		rhs, err := parseterm(scan, p)
		if err != nil {
			return nil, err
		}
		n = &node{kind: kind, pos: tok.pos, left: n, right: rhs}
	}
}

// parseterm parses a product of powers. If there is no error, the token
// following the term is pushed back to scan.
func parseterm(scan *lexer, p *parsectx) (*node, error) {
	n, err := parsepow(scan, p)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := scan.next()
		if err != nil {
			return nil, err
		}
		var kind nodeKind
		switch {
		case tok.kind == tokenOp && tok.text == "*":
			kind = nodeMul
		case tok.kind == tokenOp && tok.text == "/":
			kind = nodeDiv
		case tok.kind == tokenOp && tok.text == "%":
			kind = nodeMod
		default:
			scan.push(tok)
			return n, nil
		}
		rhs, err := parsepow(scan, p)
		if err != nil {
			return nil, err
		}
		n = &node{kind: kind, pos: tok.pos, left: n, right: rhs}
	}
}

// parsepow parses a factor raised to a power. Exponentiation is
// right-associative, so the exponent is itself a full power:
// a^b^c -> (a)^((b)^(c)).
func parsepow(scan *lexer, p *parsectx) (*node, error) {
	n, err := parsefactor(scan, p)
	if err != nil {
		return nil, err
	}
	tok, err := scan.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenOp || tok.text != "^" {
		scan.push(tok)
		return n, nil
	}
	rhs, err := parsepow(scan, p)
	if err != nil {
		return nil, err
	}
	return &node{kind: nodePow, pos: tok.pos, left: n, right: rhs}, nil
}

// parsefactor parses a literal, a variable, a parenthesized expression, or a
// negated factor. Any other token is an error.
func parsefactor(scan *lexer, p *parsectx) (*node, error) {
	tok, err := scan.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenNum:
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			// The lexer only produces decimal literals, but don't trust that
			// with a panic.
			return nil, &TokenError{Col: tok.pos, Text: tok.text, Want: "number"}
		}
		// Out of range literals are already ±Inf or 0.
		return &node{kind: nodeNum, name: tok.text, num: v, pos: tok.pos}, nil
	case tokenIdent:
		p.names[tok.text] = true
		return &node{kind: nodeName, name: tok.text, pos: tok.pos}, nil
	case tokenOpen:
		n, err := parseexpr(scan, p)
		if err != nil {
			return nil, err
		}
		end, err := scan.next()
		if err != nil {
			return nil, err
		}
		if end.kind != tokenClose {
			return nil, &BracketError{Col: end.pos, Left: tok.text}
		}
		return n, nil
	case tokenOp:
		if tok.text != "-" {
			return nil, &TokenError{Col: tok.pos, Text: tok.text, Want: "operand"}
		}
		rhs, err := parsefactor(scan, p)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeNeg, pos: tok.pos, left: rhs}, nil
	case tokenClose, tokenInvalid:
		return nil, &TokenError{Col: tok.pos, Text: tok.text, Want: "operand"}
	case tokenEOF:
		return nil, &TokenError{Col: tok.pos, Want: "operand"}
	default:
		panic("linecalc: unknown token: " + tok.String())
	}
}

// Vars returns the variable names used when evaluating the expression, in
// sorted order.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.names...)
}

// String creates a string representation of the parsed expression, with
// alternating round and square brackets grouping each term.
func (e *Expr) String() string {
	var b strings.Builder
	e.n.fmt(&b, false)
	return b.String()
}
