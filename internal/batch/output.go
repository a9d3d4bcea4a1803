package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/zephyrtronium/linecalc"
)

// record is the result of one input line.
type record struct {
	Source string      `json:"source"`
	Line   int         `json:"line"`
	Input  string      `json:"input"`
	Name   string      `json:"name,omitempty"`
	Tree   string      `json:"tree,omitempty"`
	Value  float64     `json:"-"`
	Num    *number     `json:"value,omitempty"`
	Text   string      `json:"text,omitempty"`
	Error  *errorValue `json:"error,omitempty"`
}

// errorValue is the JSON form of a failed line.
type errorValue struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Col     int    `json:"col,omitempty"`
}

// number is a float64 that encodes non-finite values as JSON strings.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// output writes records in the configured format.
type output struct {
	w    *bufio.Writer
	enc  *json.Encoder
	verb string
}

func newOutput(cfg Config, w io.Writer) *output {
	o := &output{w: bufio.NewWriter(w), verb: cfg.Fmt}
	if cfg.Format == JSON {
		o.enc = json.NewEncoder(o.w)
		o.enc.SetEscapeHTML(false)
	}
	return o
}

// result writes a successful record.
func (o *output) result(rec record) error {
	rec.Text = fmt.Sprintf(o.verb, rec.Value)
	if o.enc != nil {
		n := number(rec.Value)
		rec.Num = &n
		return o.enc.Encode(rec)
	}
	var err error
	switch {
	case rec.Name != "" && rec.Tree != "":
		_, err = fmt.Fprintf(o.w, "%s = %s : %s\n", rec.Name, rec.Tree, rec.Text)
	case rec.Name != "":
		_, err = fmt.Fprintf(o.w, "%s = %s\n", rec.Name, rec.Text)
	case rec.Tree != "":
		_, err = fmt.Fprintf(o.w, "%s : %s\n", rec.Tree, rec.Text)
	default:
		_, err = fmt.Fprintln(o.w, rec.Text)
	}
	return err
}

// failure writes a record for a failed line. Text output has no failure
// records; errors there go to the log or the caller.
func (o *output) failure(rec record, err *LineError) error {
	if o.enc == nil {
		return nil
	}
	rec.Name = ""
	rec.Error = &errorValue{
		Kind:    linecalc.Kind(err.Err),
		Message: err.Err.Error(),
	}
	if ie, ok := err.Err.(linecalc.InputError); ok {
		rec.Error.Col = ie.Pos()
	}
	return o.enc.Encode(rec)
}

func (o *output) flush() error {
	return o.w.Flush()
}
