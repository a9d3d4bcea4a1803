package linecalc

import (
	"errors"
	"strconv"
)

// Classes of errors. Every error resulting from invalid input matches exactly
// one of these under errors.Is.
var (
	// ErrSyntax matches errors from malformed expressions and assignments.
	ErrSyntax = errors.New("syntax error")
	// ErrUndefined matches errors from looking up a variable that has not
	// been assigned.
	ErrUndefined = errors.New("undefined variable")
	// ErrDivisionByZero matches errors from / or % with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
)

// Kind returns a short name for the class of err: "syntax", "undefined",
// "division by zero", or the empty string if err is not an input error.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSyntax):
		return "syntax"
	case errors.Is(err, ErrUndefined):
		return "undefined"
	case errors.Is(err, ErrDivisionByZero):
		return "division by zero"
	default:
		return ""
	}
}

// TokenError is an error indicating a token that does not belong where it
// appears, or the end of input where a token was required. It implements
// InputError and matches ErrSyntax.
type TokenError struct {
	// Col is the position of the token.
	Col int
	// Text is the offending token. It is empty if the input ended.
	Text string
	// Want describes what the parser expected instead, e.g. "operand".
	Want string
}

func (err *TokenError) Error() string {
	var s string
	if err.Text == "" {
		s = "unexpected end of input"
	} else {
		s = "unexpected " + strconv.Quote(err.Text)
	}
	if err.Want != "" {
		s += ", expected " + err.Want
	}
	return errpos(err.Col, s)
}

func (err *TokenError) Pos() int {
	return err.Col
}

func (err *TokenError) Is(target error) bool {
	return target == ErrSyntax
}

// BracketError is an error indicating mismatched parentheses in the input. It
// implements InputError and matches ErrSyntax.
type BracketError struct {
	// Col is the position where the parser noticed the mismatch.
	Col int
	// Left is the opening bracket, or empty for a close bracket with no open.
	Left string
	// Right is the closing bracket, or empty for an open bracket with no close.
	Right string
}

func (err *BracketError) Error() string {
	if err.Left == "" {
		return errpos(err.Col, "close bracket "+err.Right+" with no open bracket")
	}
	return errpos(err.Col, "open bracket "+err.Left+" with no close bracket")
}

func (err *BracketError) Pos() int {
	return err.Col
}

func (err *BracketError) Is(target error) bool {
	return target == ErrSyntax
}

// AssignError is an error indicating a malformed assignment: either no "=" at
// all or an unusable variable name. It implements InputError and matches
// ErrSyntax.
type AssignError struct {
	// Col is the position of the variable name, or 1 if there is no "=".
	Col int
	// Name is the trimmed text left of the "=".
	Name string
	// NoEquals indicates that the line had no "=".
	NoEquals bool
}

func (err *AssignError) Error() string {
	if err.NoEquals {
		return errpos(err.Col, "invalid assignment: no \"=\"")
	}
	if err.Name == "" {
		return errpos(err.Col, "invalid assignment: missing variable name")
	}
	return errpos(err.Col, "invalid variable name "+strconv.Quote(err.Name))
}

func (err *AssignError) Pos() int {
	return err.Col
}

func (err *AssignError) Is(target error) bool {
	return target == ErrSyntax
}

// NameError is an error from a lookup for a variable that has not been
// assigned. It implements InputError and matches ErrUndefined.
type NameError struct {
	// Col is the position of the variable in the input.
	Col int
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return errpos(err.Col, "undefined variable "+strconv.Quote(err.Name))
}

func (err *NameError) Pos() int {
	return err.Col
}

func (err *NameError) Is(target error) bool {
	return target == ErrUndefined
}

// DivisionError is an error from dividing by exactly zero with / or %. It
// implements InputError and matches ErrDivisionByZero.
type DivisionError struct {
	// Col is the position of the operator.
	Col int
	// Op is the operator, "/" or "%".
	Op string
}

func (err *DivisionError) Error() string {
	if err.Op == "%" {
		return errpos(err.Col, "division by zero in remainder")
	}
	return errpos(err.Col, "division by zero")
}

func (err *DivisionError) Pos() int {
	return err.Col
}

func (err *DivisionError) Is(target error) bool {
	return target == ErrDivisionByZero
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*TokenError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*AssignError)(nil)
	_ InputError = (*NameError)(nil)
	_ InputError = (*DivisionError)(nil)
)
