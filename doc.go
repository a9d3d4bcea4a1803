// Package linecalc implements a line-at-a-time floating-point calculator.
//
// Each line is either an expression, like "2 + 3*4", or an assignment, like
// "x = 2^10". Expressions use the usual operators + - * / % and ^ with
// parentheses and unary minus. "^" is right-associative, so "2^3^2" is
// "2^(3^2)". Unary minus applies to the factor right after it, so "-2^2" is
// "(-2)^2".
//
// An Engine holds the variables assigned by earlier lines, so a sequence of
// lines evaluated with the same Engine behaves like a small program. Engines
// share nothing with each other.
//
// All arithmetic is float64. Division and remainder by zero are errors rather
// than infinities; everything else follows IEEE 754.
package linecalc
