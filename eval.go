package linecalc

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Engine evaluates expressions and assignments against a set of variables.
// Assignments made through an Engine are visible to everything it evaluates
// afterward. It is not safe to use an Engine concurrently.
type Engine struct {
	names   map[string]float64
	parse   parsectx
	lenient bool
}

// Option is an option used when creating an engine.
type Option interface {
	engineOption()
}

type (
	varopt struct {
		name string
		val  float64
	}
	varsopt    map[string]float64
	lenientopt bool
	parseopt   []ParseOption
)

func (varopt) engineOption()     {}
func (varsopt) engineOption()    {}
func (lenientopt) engineOption() {}
func (parseopt) engineOption()   {}

// SetVar sets the value of a variable in the engine.
func SetVar(name string, val float64) Option {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the engine.
func SetVars(vars map[string]float64) Option {
	return varsopt(vars)
}

// LenientNames makes Assign accept any variable name that begins with a
// letter once surrounding whitespace is trimmed, storing it verbatim. By
// default the whole name must be a letter followed by letters, digits, and
// underscores.
func LenientNames() Option {
	return lenientopt(true)
}

// Parsing sets the parse options used by Eval, Assign, and Parse.
func Parsing(opts ...ParseOption) Option {
	return parseopt(opts)
}

// New creates a new engine with no variables other than those set by opts.
func New(opts ...Option) *Engine {
	e := Engine{names: make(map[string]float64)}
	return e.Clone(opts...)
}

// Clone creates a copy of an engine and applies options to it. Later
// assignments to either engine are not visible to the other.
func (e *Engine) Clone(opts ...Option) *Engine {
	n := Engine{
		names:   make(map[string]float64, len(e.names)),
		parse:   e.parse,
		lenient: e.lenient,
	}
	for k, v := range e.names {
		n.names[k] = v
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.names[opt.name] = opt.val
		case varsopt:
			for k, v := range opt {
				n.names[k] = v
			}
		case lenientopt:
			n.lenient = bool(opt)
		case parseopt:
			for _, o := range opt {
				n.parse = o.parseOption(n.parse)
			}
		default:
			panic("linecalc: unknown option type")
		}
	}
	return &n
}

// Parse parses text with the engine's parse options.
func (e *Engine) Parse(text string) (*Expr, error) {
	return parse(strings.NewReader(text), 0, e.parse)
}

// Eval parses and evaluates an expression. It has no effect on the engine's
// variables.
func (e *Engine) Eval(text string) (float64, error) {
	x, err := e.Parse(text)
	if err != nil {
		return 0, err
	}
	return e.EvalExpr(x)
}

// EvalExpr evaluates a parsed expression using the engine's current variables.
func (e *Engine) EvalExpr(x *Expr) (float64, error) {
	return x.n.eval(e.names)
}

// Assign evaluates a line of the form "name = expression" and stores the
// result in the variable named on the left of the first "=". The variable is
// unchanged if the expression fails to evaluate. Error positions count from
// the start of line.
func (e *Engine) Assign(line string) (string, float64, error) {
	name, x, err := e.ParseAssignment(line)
	if err != nil {
		return "", 0, err
	}
	v, err := e.EvalExpr(x)
	if err != nil {
		return "", 0, err
	}
	e.names[name] = v
	return name, v, nil
}

// ParseAssignment splits an assignment line into its target name and parsed
// expression without evaluating anything or changing any variables.
func (e *Engine) ParseAssignment(line string) (string, *Expr, error) {
	k := strings.IndexByte(line, '=')
	if k < 0 {
		return "", nil, &AssignError{Col: 1, NoEquals: true}
	}
	lhs := line[:k]
	name := strings.TrimSpace(lhs)
	col := utf8.RuneCountInString(lhs[:strings.Index(lhs, name)]) + 1
	if name == "" {
		col = utf8.RuneCountInString(lhs) + 1
	}
	if !e.validName(name) {
		return "", nil, &AssignError{Col: col, Name: name}
	}
	x, err := parse(strings.NewReader(line[k+1:]), utf8.RuneCountInString(line[:k+1]), e.parse)
	if err != nil {
		return "", nil, err
	}
	return name, x, nil
}

// validName checks an assignment target according to the engine's settings.
func (e *Engine) validName(name string) bool {
	if !e.lenient {
		return ValidName(name)
	}
	r, _ := utf8.DecodeRuneInString(name)
	return name != "" && ValidName(string(r))
}

// Set sets the value of a variable. Returns e for chaining.
func (e *Engine) Set(name string, value float64) *Engine {
	e.names[name] = value
	return e
}

// Lookup returns the value of a variable and whether it is assigned.
func (e *Engine) Lookup(name string) (float64, bool) {
	v, ok := e.names[name]
	return v, ok
}

// Names returns the names of all assigned variables in sorted order.
func (e *Engine) Names() []string {
	r := make([]string, 0, len(e.names))
	for k := range e.names {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

// Vars returns a copy of the engine's variables.
func (e *Engine) Vars() map[string]float64 {
	r := make(map[string]float64, len(e.names))
	for k, v := range e.names {
		r[k] = v
	}
	return r
}

// IsAssignment returns whether a line should be evaluated with Assign rather
// than Eval, which is whether it contains "=" anywhere.
func IsAssignment(line string) bool {
	return strings.IndexByte(line, '=') >= 0
}

// eval computes the node's value. Operands are evaluated left to right, so the
// first error in reading order is the one reported.
func (n *node) eval(names map[string]float64) (float64, error) {
	switch n.kind {
	case nodeNum:
		return n.num, nil
	case nodeName:
		v, ok := names[n.name]
		if !ok {
			return 0, &NameError{Col: n.pos, Name: n.name}
		}
		return v, nil
	case nodeNeg:
		v, err := n.left.eval(names)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodeMod, nodePow:
		l, err := n.left.eval(names)
		if err != nil {
			return 0, err
		}
		r, err := n.right.eval(names)
		if err != nil {
			return 0, err
		}
		return n.apply(l, r)
	default:
		panic("linecalc: invalid AST node " + n.kind.String())
	}
}

// apply computes a binary operation on evaluated operands.
func (n *node) apply(l, r float64) (float64, error) {
	switch n.kind {
	case nodeAdd:
		return l + r, nil
	case nodeSub:
		return l - r, nil
	case nodeMul:
		return l * r, nil
	case nodeDiv:
		if r == 0 {
			return 0, &DivisionError{Col: n.pos, Op: "/"}
		}
		return l / r, nil
	case nodeMod:
		if r == 0 {
			return 0, &DivisionError{Col: n.pos, Op: "%"}
		}
		return math.Mod(l, r), nil
	case nodePow:
		return math.Pow(l, r), nil
	default:
		panic("linecalc: not a binary operation: " + n.kind.String())
	}
}
