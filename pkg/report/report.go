// Package report renders column summaries.
//
// The text format is the classic datstats output, four lines per column:
//
//	Col 1 mean: 2.0
//	Col 1 median: 2.0
//	Col 1 min/max: 1.0 / 3.0
//	<blank line>
//
// json and yaml render the same summaries as a list of objects.
package report

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/datstats/pkg/colstats"
	"github.com/ajitpratap0/datstats/pkg/errors"
)

// Format names an output format
type Format string

const (
	// FormatText is the default line-oriented output
	FormatText Format = "text"
	// FormatJSON renders an indented JSON array
	FormatJSON Format = "json"
	// FormatYAML renders a YAML sequence
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

// Formatter writes summaries to w
type Formatter interface {
	Format() Format
	Write(w io.Writer, summaries []colstats.Summary) error
}

// New returns the formatter for name. The empty name selects text.
func New(name string) (Formatter, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return textFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatYAML:
		return yamlFormatter{}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown output format %q", name).
			WithDetail("supported", Formats)
	}
}

type textFormatter struct{}

func (textFormatter) Format() Format { return FormatText }

func (textFormatter) Write(w io.Writer, summaries []colstats.Summary) error {
	bw := bufio.NewWriter(w)
	for _, s := range summaries {
		col := strconv.Itoa(s.Column)
		bw.WriteString("Col " + col + " mean: " + FormatFloat(s.Mean) + "\n")
		bw.WriteString("Col " + col + " median: " + FormatFloat(s.Median) + "\n")
		bw.WriteString("Col " + col + " min/max: " + FormatFloat(s.Min) + " / " + FormatFloat(s.Max) + "\n")
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// FormatFloat renders v in its shortest round-trip form. Integral values keep
// a ".0" suffix, and exponent notation is used when the decimal exponent is
// below -4 or at least 16.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if v != 0 {
		exp := decimalExponent(v)
		if exp < -4 || exp >= 16 {
			return strconv.FormatFloat(v, 'e', -1, 64)
		}
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// decimalExponent returns the exponent of the shortest scientific form of v
func decimalExponent(v float64) int {
	s := strconv.FormatFloat(v, 'e', -1, 64)
	i := strings.LastIndexByte(s, 'e')
	exp, _ := strconv.Atoi(s[i+1:])
	return exp
}

// record is the structured form of a summary. Non-finite values are
// rendered as strings because JSON has no representation for them.
type record struct {
	Column int         `json:"column" yaml:"column"`
	Count  int         `json:"count" yaml:"count"`
	Sum    interface{} `json:"sum" yaml:"sum"`
	Mean   interface{} `json:"mean" yaml:"mean"`
	Median interface{} `json:"median" yaml:"median"`
	Min    interface{} `json:"min" yaml:"min"`
	Max    interface{} `json:"max" yaml:"max"`
	StdDev interface{} `json:"stddev" yaml:"stddev"`
}

func number(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatFloat(v)
	}
	return v
}

func records(summaries []colstats.Summary) []record {
	out := make([]record, len(summaries))
	for i, s := range summaries {
		out[i] = record{
			Column: s.Column,
			Count:  s.Count,
			Sum:    number(s.Sum),
			Mean:   number(s.Mean),
			Median: number(s.Median),
			Min:    number(s.Min),
			Max:    number(s.Max),
			StdDev: number(s.StdDev),
		}
	}
	return out
}

type jsonFormatter struct{}

func (jsonFormatter) Format() Format { return FormatJSON }

func (jsonFormatter) Write(w io.Writer, summaries []colstats.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records(summaries)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode json report")
	}
	return nil
}

type yamlFormatter struct{}

func (yamlFormatter) Format() Format { return FormatYAML }

func (yamlFormatter) Write(w io.Writer, summaries []colstats.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records(summaries)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode yaml report")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to flush yaml report")
	}
	return nil
}
