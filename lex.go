package linecalc

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"
)

type lexToken struct {
	text string
	kind tokenKind
	pos  int
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + t.text + "@" + strconv.Itoa(t.pos)
}

type tokenKind int

const (
	tokenNone tokenKind = iota
	// tokenEOF indicates the end of the input.
	tokenEOF
	// tokenNum is a decimal floating-point literal.
	tokenNum
	// tokenIdent is a variable name.
	tokenIdent
	// tokenOp is an operator.
	tokenOp
	// tokenOpen is an open parenthesis.
	tokenOpen
	// tokenClose is a close parenthesis.
	tokenClose
	// tokenInvalid is a rune that starts no token. The parser decides whether
	// it is an error.
	tokenInvalid
)

func (k tokenKind) String() string {
	switch k {
	case tokenNone:
		return "None"
	case tokenEOF:
		return "EOF"
	case tokenNum:
		return "Num"
	case tokenIdent:
		return "Ident"
	case tokenOp:
		return "Op"
	case tokenOpen:
		return "Open"
	case tokenClose:
		return "Close"
	case tokenInvalid:
		return "Invalid"
	default:
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Operators contains the runes which are considered to be operators.
const Operators = "+-*/%^"

type lexer struct {
	src io.RuneScanner
	buf strings.Builder
	// back holds runes given back to the lexer, most recent last.
	back []rune
	// col is the number of runes consumed so far, plus any column offset the
	// lexer was created with.
	col int
	p   lexToken
	// srcEOF is set once src has reported io.EOF so it is never read again.
	srcEOF bool
}

// lex creates a lexer whose token positions start counting after col runes.
func lex(src io.RuneScanner, col int) *lexer {
	return &lexer{
		src: src,
		col: col,
	}
}

// push unreads a token so that it is the next token returned from next. Panics
// if there is already a pushed token.
func (l *lexer) push(tok lexToken) {
	if l.p.kind != tokenNone {
		panic("linecalc: double push")
	}
	l.p = tok
}

// readRune reads the next rune, preferring runes that were given back.
func (l *lexer) readRune() (rune, error) {
	if n := len(l.back); n > 0 {
		r := l.back[n-1]
		l.back = l.back[:n-1]
		l.col++
		return r, nil
	}
	if l.srcEOF {
		return 0, io.EOF
	}
	r, _, err := l.src.ReadRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			l.srcEOF = true
		}
		return 0, err
	}
	l.col++
	return r, nil
}

// unreadRune gives a rune back to the lexer. Any number of runes may be given
// back; they are read again in reverse order.
func (l *lexer) unreadRune(r rune) {
	l.back = append(l.back, r)
	l.col--
}

// next scans the next token from the input. Once the input is exhausted, every
// call returns an EOF token positioned just past the last rune.
func (l *lexer) next() (lexToken, error) {
	if l.p.kind != tokenNone {
		tok := l.p
		l.p = lexToken{}
		return tok, nil
	}
	defer l.buf.Reset()
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lexToken{kind: tokenEOF, pos: l.col + 1}, nil
			}
			return lexToken{pos: l.col + 1}, err
		}
		pos := l.col
		switch {
		case unicode.IsSpace(r):
			continue
		case isDigit(r), r == '.':
			l.unreadRune(r)
			if err := l.scanNum(pos); err != nil {
				return lexToken{pos: pos}, err
			}
			return lexToken{text: l.buf.String(), kind: tokenNum, pos: pos}, nil
		case unicode.IsLetter(r):
			l.unreadRune(r)
			if err := l.scanIdent(); err != nil {
				return lexToken{pos: pos}, err
			}
			return lexToken{text: l.buf.String(), kind: tokenIdent, pos: pos}, nil
		case r == '(':
			return lexToken{text: "(", kind: tokenOpen, pos: pos}, nil
		case r == ')':
			return lexToken{text: ")", kind: tokenClose, pos: pos}, nil
		case strings.ContainsRune(Operators, r):
			return lexToken{text: string(r), kind: tokenOp, pos: pos}, nil
		default:
			return lexToken{text: string(r), kind: tokenInvalid, pos: pos}, nil
		}
	}
}

// accept consumes the next rune into the token buffer if it satisfies ok.
func (l *lexer) accept(ok func(rune) bool) (bool, error) {
	r, err := l.readRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	if !ok(r) {
		l.unreadRune(r)
		return false, nil
	}
	l.buf.WriteRune(r)
	return true, nil
}

func (l *lexer) scanDigits() (bool, error) {
	got := false
	for {
		ok, err := l.accept(isDigit)
		if err != nil || !ok {
			return got, err
		}
		got = true
	}
}

// scanNum scans the longest prefix of the input that reads as a decimal
// literal: digits with at most one dot, then an optional exponent.
func (l *lexer) scanNum(pos int) error {
	dig, err := l.scanDigits()
	if err != nil {
		return err
	}
	dot, err := l.accept(func(r rune) bool { return r == '.' })
	if err != nil {
		return err
	}
	if dot {
		frac, err := l.scanDigits()
		if err != nil {
			return err
		}
		dig = dig || frac
	}
	if !dig {
		return &TokenError{Col: pos, Text: l.buf.String(), Want: "number"}
	}
	return l.scanExponent()
}

// scanExponent scans e, an optional sign, and digits. If no digit follows the
// marker, nothing is consumed and the marker starts the next token.
func (l *lexer) scanExponent() error {
	var seen []rune
	giveBack := func() {
		for i := len(seen) - 1; i >= 0; i-- {
			l.unreadRune(seen[i])
		}
	}
	for i := 0; i < 3; i++ {
		r, err := l.readRune()
		if err != nil {
			giveBack()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		seen = append(seen, r)
		switch {
		case i == 0 && (r == 'e' || r == 'E'):
		case i == 1 && (r == '+' || r == '-'):
		case i > 0 && isDigit(r):
			for _, r := range seen {
				l.buf.WriteRune(r)
			}
			_, err := l.scanDigits()
			return err
		default:
			giveBack()
			return nil
		}
	}
	giveBack()
	return nil
}

func (l *lexer) scanIdent() error {
	for {
		ok, err := l.accept(isIdentRune)
		if err != nil || !ok {
			// next gives back the rune that decides ident scanning before
			// calling scanIdent, so we have scanned at least one rune.
			return err
		}
	}
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ValidName returns whether name can be used as a variable name: a letter
// followed by any number of letters, digits, and underscores.
func ValidName(name string) bool {
	for i, r := range name {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !isIdentRune(r) {
			return false
		}
	}
	return name != ""
}
