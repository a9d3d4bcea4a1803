package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/linecalc"
)

// Policy decides what happens to the rest of the input after a line fails.
type Policy string

const (
	// Halt stops at the first failing line.
	Halt Policy = "halt"
	// Skip reports the failing line and continues with the next one.
	Skip Policy = "skip"
)

// Format is the output format for results.
type Format string

const (
	// Text writes "value" or "name = value", one line per input line.
	Text Format = "text"
	// JSON writes one JSON object per input line.
	JSON Format = "json"
)

// Config holds the settings for a Runner. The zero value is not valid; start
// from DefaultConfig.
type Config struct {
	// OnError is the failure policy.
	OnError Policy `yaml:"on_error"`
	// Format is the output format.
	Format Format `yaml:"format"`
	// Fmt is the fmt verb used to format values, e.g. "%g" or "%.6g".
	Fmt string `yaml:"fmt"`
	// IgnoreTrailing stops each expression at the end of its first complete
	// expression instead of rejecting leftover input.
	IgnoreTrailing bool `yaml:"ignore_trailing"`
	// LenientNames accepts any assignment target that starts with a letter.
	LenientNames bool `yaml:"lenient_names"`
	// Echo adds the parse tree of each expression to the output.
	Echo bool `yaml:"echo"`
	// Given holds variables to define before the first line, in order.
	Given Presets `yaml:"given,omitempty"`
}

// DefaultConfig returns the configuration that reproduces a plain run: halt
// on the first error, text output, shortest round-trip number formatting.
func DefaultConfig() Config {
	return Config{
		OnError: Halt,
		Format:  Text,
		Fmt:     "%g",
	}
}

// LoadConfig reads a YAML configuration file. Fields absent from the file keep
// their default values. Unknown fields are an error.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := ParseConfig(bytes.NewReader(b))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a YAML configuration on top of DefaultConfig.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every setting has a usable value.
func (c Config) Validate() error {
	switch c.OnError {
	case Halt, Skip: // do nothing
	default:
		return fmt.Errorf("invalid on_error %q: must be %q or %q", c.OnError, Halt, Skip)
	}
	switch c.Format {
	case Text, JSON: // do nothing
	default:
		return fmt.Errorf("invalid format %q: must be %q or %q", c.Format, Text, JSON)
	}
	if s := fmt.Sprintf(c.Fmt, 1.5); c.Fmt == "" || strings.Contains(s, "%!") {
		return fmt.Errorf("invalid fmt %q: must format one floating-point value", c.Fmt)
	}
	for _, p := range c.Given {
		if !linecalc.ValidName(p.Name) {
			return fmt.Errorf("invalid preset name %q", p.Name)
		}
	}
	return nil
}

// Preset is a variable defined before any input line is read. It is either a
// literal number or an expression evaluated against the presets before it.
type Preset struct {
	Name string
	// Expr is the expression text. It is empty for literal presets.
	Expr string
	// Value is the literal value when Expr is empty.
	Value float64
}

// ParsePreset parses a command-line definition of the form "name=expression".
func ParsePreset(s string) (Preset, error) {
	name, expr, ok := strings.Cut(s, "=")
	if !ok {
		return Preset{}, fmt.Errorf(`variable definitions must be "name=value", not %q`, s)
	}
	p := Preset{Name: strings.TrimSpace(name), Expr: strings.TrimSpace(expr)}
	if !linecalc.ValidName(p.Name) {
		return Preset{}, fmt.Errorf("invalid variable name %q", p.Name)
	}
	if p.Expr == "" {
		return Preset{}, fmt.Errorf("no value for %s", p.Name)
	}
	return p, nil
}

// apply defines the preset in eng.
func (p Preset) apply(eng *linecalc.Engine) (float64, error) {
	if p.Expr == "" {
		eng.Set(p.Name, p.Value)
		return p.Value, nil
	}
	// Assign through the engine so the name and expression follow the same
	// rules as input lines.
	_, v, err := eng.Assign(p.Name + " = " + p.Expr)
	return v, err
}

// Presets is an ordered list of presets. In YAML it is a mapping from names to
// numbers or expression strings, kept in document order.
type Presets []Preset

// UnmarshalYAML decodes a mapping node into presets.
func (ps *Presets) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: variables must be a mapping of names to values", value.Line)
	}
	r := make(Presets, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %s must be a number or an expression", v.Line, k.Value)
		}
		p := Preset{Name: k.Value}
		switch v.ShortTag() {
		case "!!int", "!!float":
			// Includes .inf and .nan, which have no expression syntax.
			if err := v.Decode(&p.Value); err != nil {
				return fmt.Errorf("line %d: %w", v.Line, err)
			}
		default:
			p.Expr = v.Value
			if strings.TrimSpace(p.Expr) == "" {
				return fmt.Errorf("line %d: no value for %s", v.Line, k.Value)
			}
		}
		r = append(r, p)
	}
	*ps = r
	return nil
}

// ReadVars reads presets from a YAML mapping, such as one written by
// WriteVars.
func ReadVars(r io.Reader) (Presets, error) {
	var ps Presets
	if err := yaml.NewDecoder(r).Decode(&ps); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for _, p := range ps {
		if !linecalc.ValidName(p.Name) {
			return nil, fmt.Errorf("invalid variable name %q", p.Name)
		}
	}
	return ps, nil
}

// WriteVars writes the engine's variables as a YAML mapping with sorted keys.
func WriteVars(w io.Writer, eng *linecalc.Engine) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(eng.Vars()); err != nil {
		return err
	}
	return enc.Close()
}
