package linecalc_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"testing"

	"github.com/zephyrtronium/linecalc"
)

func TestEval(t *testing.T) {
	type vv struct {
		n string
		v float64
	}
	type vc struct {
		vars []vv
		r    float64
	}
	cases := []struct {
		name string
		src  string
		r    []vc
	}{
		{"num", "1", []vc{{nil, 1}}},
		{"frac", "0.25", []vc{{nil, 0.25}}},
		{"lead-dot", ".5", []vc{{nil, 0.5}}},
		{"trail-dot", "5.", []vc{{nil, 5}}},
		{"exp", "1e3", []vc{{nil, 1000}}},
		{"exp-neg", "2.5e-1", []vc{{nil, 0.25}}},
		{"overflow", "1e400", []vc{{nil, math.Inf(1)}}},
		{"ident", "x", []vc{
			{[]vv{{"x", 4}}, 4},
			{[]vv{{"x", 5}}, 5},
			{[]vv{{"x", 6}}, 6},
		}},
		{"neg", "-x", []vc{
			{[]vv{{"x", 4}}, -4},
			{[]vv{{"x", -5}}, 5},
		}},
		{"neg-lit", "-5", []vc{{nil, -5}}},
		{"neg-neg", "--5", []vc{{nil, 5}}},
		{"neg-paren", "-(2+3)", []vc{{nil, -5}}},
		{"add", "4+5+6", []vc{{nil, 4 + 5 + 6}}},
		{"sub", "4-5-6", []vc{{nil, 4 - 5 - 6}}},
		{"sub-left", "10-3-2", []vc{{nil, 5}}},
		{"mul", "4*5*6", []vc{{nil, 4 * 5 * 6}}},
		{"div", "4/5/6", []vc{{nil, 4.0 / 5.0 / 6.0}}},
		{"div-left", "20/2/2", []vc{{nil, 5}}},
		{"third", "1/3", []vc{{nil, 1.0 / 3.0}}},
		{"mod", "10%3", []vc{{nil, 1}}},
		{"mod-neg-lhs", "-10%3", []vc{{nil, -1}}},
		{"mod-neg-rhs", "10%-3", []vc{{nil, 1}}},
		{"mod-frac", "5.5%2", []vc{{nil, 1.5}}},
		{"pow", "2^10", []vc{{nil, 1024}}},
		{"pow-right", "2^3^2", []vc{{nil, 512}}},
		{"pow-neg-exp", "2^-1", []vc{{nil, 0.5}}},
		{"pow-frac", "2^0.5", []vc{{nil, math.Pow(2, 0.5)}}},
		{"neg-base", "-2^2", []vc{{nil, 4}}},
		{"prec", "2+3*4", []vc{{nil, 14}}},
		{"group", "(2+3)*4", []vc{{nil, 20}}},
		{"pow-over-mul", "2*3^2", []vc{{nil, 18}}},
		{"spaces", " \t1 +\t2 ", []vc{{nil, 3}}},
		{"poly", "x^2 - 2*x + 1", []vc{
			{[]vv{{"x", 0}}, 1},
			{[]vv{{"x", 1}}, 0},
			{[]vv{{"x", 3}}, 4},
		}},
		{"case", "x - X", []vc{{[]vv{{"x", 3}, {"X", 1}}, 2}}},
		{"long-name", "rate_2 * t", []vc{{[]vv{{"rate_2", 1.5}, {"t", 4}}, 6}}},
	}
	eng := linecalc.New()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for _, v := range c.r {
				eng := eng.Clone()
				for _, x := range v.vars {
					eng.Set(x.n, x.v)
				}
				r, err := eng.Eval(c.src)
				if err != nil {
					t.Fatalf("evaluating %q: %v", c.src, err)
				}
				if r != v.r {
					t.Errorf("wrong result for %q: want %g, got %g", c.src, v.r, r)
				}
			}
		})
	}
}

func TestEvalNaN(t *testing.T) {
	for _, src := range []string{"(-8)^(1/3)", "(-1)^0.5", "1e400 - 1e400", "0 * 1e400"} {
		r, err := linecalc.New().Eval(src)
		if err != nil {
			t.Errorf("evaluating %q: %v", src, err)
			continue
		}
		if !math.IsNaN(r) {
			t.Errorf("%q should be NaN, got %g", src, r)
		}
	}
}

func TestEvalUndefNames(t *testing.T) {
	cases := []struct {
		name string
		src  string
		r    string
		col  int
	}{
		{"x", "x", "x", 1},
		{"neg", "-x", "x", 2},
		{"add-lhs", "x+1", "x", 1},
		{"add-rhs", "1+x", "x", 3},
		{"sub-lhs", "x-1", "x", 1},
		{"sub-rhs", "1-x", "x", 3},
		{"mul-lhs", "x*1", "x", 1},
		{"mul-rhs", "1*x", "x", 3},
		{"div-lhs", "x/1", "x", 1},
		{"div-rhs", "1/x", "x", 3},
		{"mod-rhs", "1%x", "x", 3},
		{"pow-lhs", "x^1", "x", 1},
		{"pow-rhs", "1^x", "x", 3},
		{"paren", "(1+(x))", "x", 5},
		{"first", "y + x", "y", 1},
		{"case", "X", "X", 1},
	}
	ure := regexp.MustCompile(`(?i)\bundef`)
	vre := regexp.MustCompile(`(?i)\bvar`)
	eng := linecalc.New(linecalc.SetVar("x0", 1))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := eng.Eval(c.src)
			if err == nil {
				t.Fatalf("evaluating %q gave no error and result %g", c.src, r)
			}
			if !errors.Is(err, linecalc.ErrUndefined) {
				t.Errorf("%v is not ErrUndefined", err)
			}
			u, ok := err.(*linecalc.NameError)
			if !ok {
				t.Fatalf("error was %#v, not NameError", err)
			}
			if u.Name != c.r {
				t.Errorf("NameError on %q, want %q", u.Name, c.r)
			}
			if u.Pos() != c.col {
				t.Errorf("NameError at %d, want %d", u.Pos(), c.col)
			}
			msg := err.Error()
			if !ure.MatchString(msg) {
				t.Errorf(`%q doesn't mention "undef"`, msg)
			}
			if !vre.MatchString(msg) {
				t.Errorf(`%q doesn't mention "var"`, msg)
			}
			xre := regexp.MustCompile(`\b` + c.r + `\b`)
			if !xre.MatchString(msg) {
				t.Errorf(`%q doesn't mention %q`, msg, c.r)
			}
		})
	}
	if got := eng.Names(); !reflect.DeepEqual(got, []string{"x0"}) {
		t.Errorf("lookups created variables: %q", got)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	cases := []struct {
		name string
		src  string
		op   string
		col  int
	}{
		{"div", "5/0", "/", 2},
		{"div-zero", "0/0", "/", 2},
		{"div-neg-zero", "1/-0", "/", 2},
		{"div-expr", "1 / (2 - 2)", "/", 3},
		{"div-float", "1/0.0", "/", 2},
		{"mod", "10%0", "%", 3},
		{"mod-expr", "10 % (3*0)", "%", 4},
		{"second", "1/1/0", "/", 4},
		{"var", "1/z", "/", 2},
	}
	eng := linecalc.New(linecalc.SetVar("z", 0))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := eng.Eval(c.src)
			if err == nil {
				t.Fatalf("evaluating %q gave no error and result %g", c.src, r)
			}
			if !errors.Is(err, linecalc.ErrDivisionByZero) {
				t.Errorf("%v is not ErrDivisionByZero", err)
			}
			var d *linecalc.DivisionError
			if !errors.As(err, &d) {
				t.Fatalf("%#v is not *DivisionError", err)
			}
			if d.Op != c.op || d.Pos() != c.col {
				t.Errorf("wrong error: want %s at %d, got %s at %d", c.op, c.col, d.Op, d.Pos())
			}
			if linecalc.Kind(err) != "division by zero" {
				t.Errorf("Kind(%v) = %q", err, linecalc.Kind(err))
			}
		})
	}
}

func TestEvalNearZeroDivisor(t *testing.T) {
	r, err := linecalc.New().Eval("1/1e-320")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(r, 1) {
		t.Errorf("want +Inf, got %g", r)
	}
}

func TestEvalErrorOrder(t *testing.T) {
	// Operands evaluate left to right.
	_, err := linecalc.New().Eval("x / 0 + y")
	if !errors.Is(err, linecalc.ErrUndefined) {
		t.Errorf("want undefined x first, got %v", err)
	}
	_, err = linecalc.New().Eval("1/0 + y")
	if !errors.Is(err, linecalc.ErrDivisionByZero) {
		t.Errorf("want division by zero first, got %v", err)
	}
	// The whole line is parsed before anything is evaluated.
	_, err = linecalc.New().Eval("1/0 + (")
	if !errors.Is(err, linecalc.ErrSyntax) {
		t.Errorf("want syntax error first, got %v", err)
	}
}

func TestEvalSyntax(t *testing.T) {
	cases := []string{"", "(1+2", "1+2)", "5 5", "1 +", "*2", "()", "$", "2 x", "1 = 2", "."}
	eng := linecalc.New()
	for _, src := range cases {
		_, err := eng.Eval(src)
		if !errors.Is(err, linecalc.ErrSyntax) {
			t.Errorf("%q: want syntax error, got %v", src, err)
		}
		if linecalc.Kind(err) != "syntax" {
			t.Errorf("%q: Kind is %q", src, linecalc.Kind(err))
		}
		if _, ok := err.(linecalc.InputError); !ok {
			t.Errorf("%q: %#v is not an InputError", src, err)
		}
	}
}

func TestEvalIgnoreTrailing(t *testing.T) {
	eng := linecalc.New(linecalc.Parsing(linecalc.IgnoreTrailing()))
	r, err := eng.Eval("5 5")
	if err != nil {
		t.Fatal(err)
	}
	if r != 5 {
		t.Errorf("want 5, got %g", r)
	}
	// Clones keep the parse options.
	if _, err := eng.Clone().Eval("1+2)"); err != nil {
		t.Errorf("clone lost IgnoreTrailing: %v", err)
	}
}

func TestEvalIdempotent(t *testing.T) {
	eng := linecalc.New(linecalc.SetVars(map[string]float64{"a": 1.5, "b": -2}))
	for _, src := range []string{"a^b % 0.7 - a*b", "(a+b)/3", "--a"} {
		r1, err1 := eng.Eval(src)
		r2, err2 := eng.Eval(src)
		if r1 != r2 || err1 != nil || err2 != nil {
			t.Errorf("%q gave %g, %v then %g, %v", src, r1, err1, r2, err2)
		}
	}
}

func TestAssign(t *testing.T) {
	eng := linecalc.New()
	name, v, err := eng.Assign("x = 5")
	if err != nil {
		t.Fatal(err)
	}
	if name != "x" || v != 5 {
		t.Errorf("want x = 5, got %s = %g", name, v)
	}
	if r, err := eng.Eval("x*2"); err != nil || r != 10 {
		t.Errorf("x*2: want 10, got %g, %v", r, err)
	}
	if _, _, err := eng.Assign("x = 7"); err != nil {
		t.Fatal(err)
	}
	if r, err := eng.Eval("x"); err != nil || r != 7 {
		t.Errorf("x: want 7, got %g, %v", r, err)
	}
	// Self reference reads the old value.
	if _, v, err := eng.Assign("x = x + 1"); err != nil || v != 8 {
		t.Errorf("x = x + 1: want 8, got %g, %v", v, err)
	}
	if _, v, err := eng.Assign("\ty_2\t=x^2"); err != nil || v != 64 {
		t.Errorf("y_2 = x^2: want 64, got %g, %v", v, err)
	}
	if got, ok := eng.Lookup("y_2"); !ok || got != 64 {
		t.Errorf("y_2 not stored: %g, %t", got, ok)
	}
	if got := eng.Names(); !reflect.DeepEqual(got, []string{"x", "y_2"}) {
		t.Errorf("wrong names: %q", got)
	}
}

func TestAssignFailureKeepsValue(t *testing.T) {
	eng := linecalc.New(linecalc.SetVar("x", 3))
	for _, line := range []string{"x = 1/0", "x = y", "x = (", "x = 1 2"} {
		if _, _, err := eng.Assign(line); err == nil {
			t.Errorf("%q: no error", line)
		}
		if v, _ := eng.Lookup("x"); v != 3 {
			t.Errorf("%q changed x to %g", line, v)
		}
	}
	if _, _, err := eng.Assign("z = q"); err == nil {
		t.Error("undefined rhs assigned")
	}
	if _, ok := eng.Lookup("z"); ok {
		t.Error("failed assignment created z")
	}
}

func TestAssignErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
		err  error
	}{
		{"no-equals", "x 5", &linecalc.AssignError{Col: 1, NoEquals: true}},
		{"digit", "1x = 5", &linecalc.AssignError{Col: 1, Name: "1x"}},
		{"underscore", "_x = 5", &linecalc.AssignError{Col: 1, Name: "_x"}},
		{"empty", " = 5", &linecalc.AssignError{Col: 2}},
		{"bare", "=5", &linecalc.AssignError{Col: 1}},
		{"spaced", "  a b = 1", &linecalc.AssignError{Col: 3, Name: "a b"}},
		{"symbol", "a+b = 1", &linecalc.AssignError{Col: 1, Name: "a+b"}},
		{"rhs-empty", "x =", &linecalc.TokenError{Col: 4, Want: "operand"}},
		{"rhs-bracket", "x = (1", &linecalc.BracketError{Col: 7, Left: "("}},
		{"rhs-double", "x == 1", &linecalc.TokenError{Col: 4, Text: "=", Want: "operand"}},
		{"rhs-trailing", "x = 1 2", &linecalc.TokenError{Col: 7, Text: "2", Want: "end of input"}},
		{"rhs-undef", "x = 1 + y", &linecalc.NameError{Col: 9, Name: "y"}},
		{"rhs-div", "x = 1/0", &linecalc.DivisionError{Col: 6, Op: "/"}},
		{"rhs-unicode", "π = 1 + y", &linecalc.NameError{Col: 9, Name: "y"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			eng := linecalc.New()
			_, _, err := eng.Assign(c.line)
			if !reflect.DeepEqual(err, c.err) {
				t.Errorf("%q gave wrong error: want %#v, got %#v", c.line, c.err, err)
			}
			if len(eng.Names()) != 0 {
				t.Errorf("%q assigned %q", c.line, eng.Names())
			}
		})
	}
}

func TestParseAssignment(t *testing.T) {
	eng := linecalc.New(linecalc.SetVar("x", 1))
	name, x, err := eng.ParseAssignment("y = x + z")
	if err != nil {
		t.Fatal(err)
	}
	if name != "y" {
		t.Errorf("wrong name: want y, got %q", name)
	}
	if s := x.String(); s != "([x] + [z])" {
		t.Errorf("wrong tree: got %s", s)
	}
	if vars := x.Vars(); !reflect.DeepEqual(vars, []string{"x", "z"}) {
		t.Errorf("wrong vars: got %q", vars)
	}
	// Parsing alone neither evaluates nor assigns.
	if _, ok := eng.Lookup("y"); ok {
		t.Error("ParseAssignment assigned y")
	}
	_, _, err = eng.ParseAssignment("1y = 2")
	if !errors.Is(err, linecalc.ErrSyntax) {
		t.Errorf("bad name gave %v", err)
	}
}

func TestAssignLenientNames(t *testing.T) {
	eng := linecalc.New(linecalc.LenientNames())
	name, v, err := eng.Assign(" a b = 2")
	if err != nil {
		t.Fatal(err)
	}
	if name != "a b" || v != 2 {
		t.Errorf("want %q = 2, got %q = %g", "a b", name, v)
	}
	if _, ok := eng.Lookup("a b"); !ok {
		t.Error("lenient name not stored verbatim")
	}
	for _, line := range []string{"1x = 5", " = 5", "_x = 1"} {
		if _, _, err := eng.Assign(line); !errors.Is(err, linecalc.ErrSyntax) {
			t.Errorf("%q: want syntax error even when lenient, got %v", line, err)
		}
	}
}

func TestEngineVars(t *testing.T) {
	eng := linecalc.New(linecalc.SetVar("x", 0))
	if x, ok := eng.Lookup("x"); !ok || x != 0 {
		t.Errorf("x should be 0, is %g (%t)", x, ok)
	}
	if _, ok := eng.Lookup("y"); ok {
		t.Error("engine has y")
	}
	eng.Set("y", 1)
	if y, ok := eng.Lookup("y"); !ok || y != 1 {
		t.Errorf("y should be 1, is %g (%t)", y, ok)
	}
	c := eng.Clone(linecalc.SetVar("z", 2))
	c.Set("x", 10)
	if x, _ := eng.Lookup("x"); x != 0 {
		t.Errorf("clone changed original x to %g", x)
	}
	if _, ok := eng.Lookup("z"); ok {
		t.Error("clone option leaked to original")
	}
	if x, _ := c.Lookup("x"); x != 10 {
		t.Errorf("clone x should be 10, is %g", x)
	}
	vars := c.Vars()
	want := map[string]float64{"x": 10, "y": 1, "z": 2}
	if !reflect.DeepEqual(vars, want) {
		t.Errorf("wrong vars: want %v, got %v", want, vars)
	}
	vars["x"] = -1
	if x, _ := c.Lookup("x"); x != 10 {
		t.Error("Vars returned the engine's own map")
	}
}

func TestEnginesIndependent(t *testing.T) {
	a := linecalc.New()
	b := linecalc.New()
	if _, _, err := a.Assign("x = 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Eval("x"); !errors.Is(err, linecalc.ErrUndefined) {
		t.Errorf("assignment leaked between engines: %v", err)
	}
}

func TestIsAssignment(t *testing.T) {
	cases := map[string]bool{
		"x = 1": true,
		"=":     true,
		"x==1":  true,
		"x + 1": false,
		"":      false,
	}
	for line, want := range cases {
		if got := linecalc.IsAssignment(line); got != want {
			t.Errorf("IsAssignment(%q) = %t", line, got)
		}
	}
}

func TestKind(t *testing.T) {
	if k := linecalc.Kind(nil); k != "" {
		t.Errorf("Kind(nil) = %q", k)
	}
	if k := linecalc.Kind(errors.New("other")); k != "" {
		t.Errorf("Kind(other) = %q", k)
	}
	wrapped := fmt.Errorf("line 3: %w", &linecalc.NameError{Col: 1, Name: "x"})
	if k := linecalc.Kind(wrapped); k != "undefined" {
		t.Errorf("Kind(wrapped) = %q", k)
	}
}

func BenchmarkEval(b *testing.B) {
	vars := map[string]float64{
		"x": 2,
		"y": 3,
		"z": 4,
	}
	b.Run("nums", func(b *testing.B) {
		b.ReportAllocs()
		eng := linecalc.New()
		for i := 0; i < b.N; i++ {
			eng.Eval("2+3+4")
		}
	})
	b.Run("vars", func(b *testing.B) {
		b.ReportAllocs()
		eng := linecalc.New(linecalc.SetVars(vars))
		a, err := eng.Parse("x^y^z % 7 - x*y/z")
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			eng.EvalExpr(a)
		}
	})
}

func Example() {
	lines := []string{
		"x = 2",
		"y = x^3^2 / 4",
		"y % 10",
		"-(x - y) * 0.5",
	}
	eng := linecalc.New()
	for _, line := range lines {
		if linecalc.IsAssignment(line) {
			name, v, err := eng.Assign(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("%s = %g\n", name, v)
			continue
		}
		v, err := eng.Eval(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("%g\n", v)
	}

	// Output:
	// x = 2
	// y = 128
	// 8
	// 63
}

func ExampleEngine_Parse() {
	eng := linecalc.New()
	a, _ := eng.Parse("-2^2 + r*r % 3")
	fmt.Println(a, a.Vars())
	eng.Set("r", 2)
	fmt.Println(eng.EvalExpr(a))

	// Output:
	// ([(-[2]) ^ (2)] + [([r] * [r]) % (3)]) [r]
	// 5 <nil>
}

func ExampleNameError() {
	_, err := linecalc.New().Eval("1 + rate")
	fmt.Println(err)

	// Output:
	// 5: undefined variable "rate"
}

func ExampleIgnoreTrailing() {
	eng := linecalc.New(linecalc.Parsing(linecalc.IgnoreTrailing()))
	fmt.Println(eng.Eval("5 5"))
	_, err := linecalc.New().Eval("5 5")
	fmt.Println(err)

	// Output:
	// 5 <nil>
	// 3: unexpected "5", expected end of input
}
