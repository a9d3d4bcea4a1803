// Package cli implements the linecalc command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/linecalc/internal/batch"
)

// RootOptions holds the command's flags.
type RootOptions struct {
	Config         string
	Out            string
	OnError        string
	Format         string
	Fmt            string
	IgnoreTrailing bool
	LenientNames   bool
	Echo           bool
	Given          []string
	Vars           string
	Dump           string
	Verbose        bool
}

// NewRootCommand creates the linecalc command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "linecalc [flags] [file...]",
		Short: "Evaluate arithmetic expressions line by line",
		Long: `linecalc reads each file in turn, or standard input if there are none, and
evaluates every non-blank line as an arithmetic expression. A line containing
"=" assigns the value of the expression on its right to the variable named on
its left; variables persist across lines and files. A file named "-" is
standard input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, args)
		},
	}
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "", err)
	})

	def := batch.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&opts.Config, "config", "", "YAML configuration file")
	f.StringVarP(&opts.Out, "out", "o", "", "write results to `file` instead of stdout")
	f.StringVar(&opts.OnError, "on-error", string(def.OnError), "what to do after a failing line (halt|skip)")
	f.StringVar(&opts.Format, "format", string(def.Format), "output format (text|json)")
	f.StringVar(&opts.Fmt, "fmt", def.Fmt, "fmt verb for results")
	f.BoolVar(&opts.IgnoreTrailing, "ignore-trailing", def.IgnoreTrailing, "ignore anything after the first complete expression on a line")
	f.BoolVar(&opts.LenientNames, "lenient-names", def.LenientNames, "accept any assignment target that starts with a letter")
	f.BoolVar(&opts.Echo, "echo", def.Echo, "print parse trees with results")
	f.StringArrayVar(&opts.Given, "given", nil, "name=value variable definition (any number of times)")
	f.StringVar(&opts.Vars, "vars", "", "YAML `file` of variables to define before reading input")
	f.StringVar(&opts.Dump, "dump", "", "write final variables as YAML to `file`")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "log each line to stderr")

	return cmd
}

// config builds the batch configuration from the config file and flags. Flags
// given explicitly override the file.
func (opts *RootOptions) config(cmd *cobra.Command) (batch.Config, error) {
	cfg := batch.DefaultConfig()
	if opts.Config != "" {
		var err error
		cfg, err = batch.LoadConfig(opts.Config)
		if err != nil {
			return cfg, err
		}
	}
	f := cmd.Flags()
	if f.Changed("on-error") {
		cfg.OnError = batch.Policy(opts.OnError)
	}
	if f.Changed("format") {
		cfg.Format = batch.Format(opts.Format)
	}
	if f.Changed("fmt") {
		cfg.Fmt = opts.Fmt
	}
	if f.Changed("ignore-trailing") {
		cfg.IgnoreTrailing = opts.IgnoreTrailing
	}
	if f.Changed("lenient-names") {
		cfg.LenientNames = opts.LenientNames
	}
	if f.Changed("echo") {
		cfg.Echo = opts.Echo
	}
	if opts.Vars != "" {
		r, err := os.Open(opts.Vars)
		if err != nil {
			return cfg, fmt.Errorf("reading variables: %w", err)
		}
		ps, err := batch.ReadVars(r)
		r.Close()
		if err != nil {
			return cfg, fmt.Errorf("variables %s: %w", opts.Vars, err)
		}
		cfg.Given = append(cfg.Given, ps...)
	}
	for _, s := range opts.Given {
		p, err := batch.ParsePreset(s)
		if err != nil {
			return cfg, err
		}
		cfg.Given = append(cfg.Given, p)
	}
	return cfg, cfg.Validate()
}

func runRoot(cmd *cobra.Command, opts *RootOptions, args []string) (err error) {
	cfg, err := opts.config(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	var out io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, ferr := os.Create(opts.Out)
		if ferr != nil {
			return WrapExitError(ExitCommandError, "creating output", ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = WrapExitError(ExitCommandError, "closing output", cerr)
			}
		}()
		out = f
	}

	r, err := batch.New(cfg, out, batch.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "", err)
	}

	if len(args) == 0 {
		args = []string{"-"}
	}
	runErr := runInputs(cmd, r, args)
	var le *batch.LineError
	if runErr != nil && !errors.As(runErr, &le) {
		return runErr
	}

	if opts.Dump != "" {
		if err := dumpVars(opts.Dump, r); err != nil {
			return WrapExitError(ExitCommandError, "writing variables", err)
		}
	}
	sum := r.Summary()
	logger.Info("done",
		"lines", sum.Lines,
		"evaluated", sum.Evaluated,
		"assigned", sum.Assigned,
		"failed", sum.Failed,
	)
	switch {
	case le != nil:
		return WrapExitError(ExitFailure, "", le)
	case sum.Failed > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d lines failed", sum.Failed, sum.Lines))
	}
	return nil
}

// runInputs runs each named input in order. It stops at the first error.
func runInputs(cmd *cobra.Command, r *batch.Runner, names []string) error {
	for _, name := range names {
		if name == "-" {
			if err := r.Run("stdin", cmd.InOrStdin()); err != nil {
				return inputError(err)
			}
			continue
		}
		f, err := os.Open(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening input", err)
		}
		err = r.Run(name, f)
		f.Close()
		if err != nil {
			return inputError(err)
		}
	}
	return nil
}

// inputError leaves line errors alone and marks anything else as an I/O
// failure.
func inputError(err error) error {
	var le *batch.LineError
	if errors.As(err, &le) {
		return err
	}
	return WrapExitError(ExitCommandError, "", err)
}

func dumpVars(path string, r *batch.Runner) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := batch.WriteVars(f, r.Engine()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
