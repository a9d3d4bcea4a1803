// Package batch runs a linecalc Engine over line-oriented input.
//
// Each non-blank input line is an expression or, if it contains "=", an
// assignment. Results are written one per line in input order. Variables
// assigned on one line are visible to every later line, including lines from
// later inputs given to the same Runner, so lines are always processed one at
// a time.
package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zephyrtronium/linecalc"
)

// maxLine is the longest input line a Runner accepts.
const maxLine = 1 << 20

// Runner evaluates lines of input with one Engine.
type Runner struct {
	eng *linecalc.Engine
	cfg Config
	out *output
	log *slog.Logger
	sum Summary
}

// Summary counts what a Runner has done so far.
type Summary struct {
	// Lines is the number of non-blank lines read.
	Lines int `json:"lines"`
	// Evaluated is the number of expressions evaluated successfully.
	Evaluated int `json:"evaluated"`
	// Assigned is the number of successful assignments.
	Assigned int `json:"assigned"`
	// Failed is the number of lines that produced an error.
	Failed int `json:"failed"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for progress and skipped lines. By default,
// nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// New creates a Runner writing results to w. It validates cfg and defines the
// presets in cfg.Given, in order.
func New(cfg Config, w io.Writer, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var eopts []linecalc.Option
	if cfg.IgnoreTrailing {
		eopts = append(eopts, linecalc.Parsing(linecalc.IgnoreTrailing()))
	}
	if cfg.LenientNames {
		eopts = append(eopts, linecalc.LenientNames())
	}
	r := &Runner{
		eng: linecalc.New(eopts...),
		cfg: cfg,
		out: newOutput(cfg, w),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, p := range cfg.Given {
		v, err := p.apply(r.eng)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Name, err)
		}
		r.log.Debug("preset", "name", p.Name, "value", v)
	}
	return r, nil
}

// Engine returns the engine holding the runner's variables.
func (r *Runner) Engine() *linecalc.Engine {
	return r.eng
}

// Summary returns the counts accumulated over every call to Run.
func (r *Runner) Summary() Summary {
	return r.sum
}

// LineError is an error evaluating one line of input.
type LineError struct {
	// Source names the input the line came from.
	Source string
	// Line is the 1-based line number within the source.
	Line int
	// Text is the line itself.
	Text string
	// Err is the engine's error.
	Err error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d:%v", e.Source, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Run evaluates every line of in. source names in for errors and logs.
//
// Under the Halt policy, the first failing line stops the run and Run returns
// a *LineError for it; nothing after that line is read. Under Skip, failing
// lines are logged and counted, and Run returns nil unless reading or writing
// fails. Output for lines before the failure is always written.
func (r *Runner) Run(source string, in io.Reader) error {
	scan := bufio.NewScanner(in)
	scan.Buffer(make([]byte, 0, 4096), maxLine)
	before := r.sum
	r.log.Info("reading input", "source", source)
	n := 0
	for scan.Scan() {
		n++
		text := scan.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		err := r.line(source, n, text)
		if err == nil {
			continue
		}
		var le *LineError
		if !errors.As(err, &le) {
			// Output failure.
			return err
		}
		if r.cfg.OnError == Halt {
			r.log.Debug("halting", "source", source, "line", n, "err", le.Err)
			return r.flush(le)
		}
		r.log.Warn("skipping line", "source", source, "line", n, "input", text, "err", le.Err)
	}
	if err := scan.Err(); err != nil {
		r.flush(nil)
		return fmt.Errorf("reading %s: %w", source, err)
	}
	r.log.Info("finished input", "source", source,
		"lines", r.sum.Lines-before.Lines,
		"failed", r.sum.Failed-before.Failed,
	)
	return r.flush(nil)
}

// flush flushes buffered output, preferring err over any error from flushing.
func (r *Runner) flush(err error) error {
	if ferr := r.out.flush(); ferr != nil && err == nil {
		return fmt.Errorf("writing output: %w", ferr)
	}
	return err
}

// line evaluates one non-blank line and writes its result record. Evaluation
// failures are returned as *LineError after the record is written.
func (r *Runner) line(source string, n int, text string) error {
	r.sum.Lines++
	rec := record{Source: source, Line: n, Input: text}
	var x *linecalc.Expr
	var err error
	if linecalc.IsAssignment(text) {
		rec.Name, x, err = r.eng.ParseAssignment(text)
		if err == nil {
			rec.Value, err = r.eng.EvalExpr(x)
		}
		if err == nil {
			r.eng.Set(rec.Name, rec.Value)
			r.sum.Assigned++
		}
	} else {
		x, err = r.eng.Parse(text)
		if err == nil {
			rec.Value, err = r.eng.EvalExpr(x)
		}
		if err == nil {
			r.sum.Evaluated++
		}
	}
	if err != nil {
		r.sum.Failed++
		le := &LineError{Source: source, Line: n, Text: text, Err: err}
		if werr := r.out.failure(rec, le); werr != nil {
			return fmt.Errorf("writing output: %w", werr)
		}
		return le
	}
	if r.cfg.Echo {
		rec.Tree = x.String()
	}
	r.log.Debug("evaluated", "source", source, "line", n, "name", rec.Name, "value", rec.Value)
	if werr := r.out.result(rec); werr != nil {
		return fmt.Errorf("writing output: %w", werr)
	}
	return nil
}
