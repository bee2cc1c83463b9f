// Package colstats aggregates rows of numeric fields column by column and
// summarizes each column once the input is exhausted.
//
// A Collector starts uninitialized. The first observed row fixes the column
// count N for the rest of its life: later rows must carry at least N fields,
// and fields past N are ignored.
//
//	c := colstats.NewCollector()
//	for _, row := range rows {
//	    if err := c.Observe(row); err != nil {
//	        return err
//	    }
//	}
//	summaries, err := c.Summarize()
package colstats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dgryski/go-onlinestats"

	"github.com/ajitpratap0/datstats/pkg/errors"
)

// Column holds every value seen at one field position
type Column struct {
	values  []float64
	sum     float64
	running *onlinestats.Running
}

func newColumn() *Column {
	return &Column{running: onlinestats.NewRunning()}
}

func (c *Column) add(v float64) {
	c.values = append(c.values, v)
	c.sum += v
	c.running.Push(v)
}

// Len returns the number of values in the column
func (c *Column) Len() int {
	return len(c.values)
}

// Sum returns the running sum of the column
func (c *Column) Sum() float64 {
	return c.sum
}

// Summary holds the statistics of one column
type Summary struct {
	// Column is the 1-based column index
	Column int     `json:"column" yaml:"column"`
	Count  int     `json:"count" yaml:"count"`
	Sum    float64 `json:"sum" yaml:"sum"`
	Mean   float64 `json:"mean" yaml:"mean"`
	// Median is the upper-middle element for even counts
	Median float64 `json:"median" yaml:"median"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
}

// Collector accumulates per-column values. It is not safe for concurrent use.
type Collector struct {
	// numCols is nil until the first row is observed
	numCols *int
	columns []*Column
	rows    int
	sealed  bool
}

// NewCollector returns an uninitialized collector
func NewCollector() *Collector {
	return &Collector{}
}

// ColumnCount returns the column count and whether it has been established
func (c *Collector) ColumnCount() (int, bool) {
	if c.numCols == nil {
		return 0, false
	}
	return *c.numCols, true
}

// Rows returns the number of rows accumulated so far
func (c *Collector) Rows() int {
	return c.rows
}

// Column returns the column at the 0-based index i, or nil
func (c *Collector) Column(i int) *Column {
	if i < 0 || i >= len(c.columns) {
		return nil
	}
	return c.columns[i]
}

func (c *Collector) initialize(n int) {
	c.numCols = &n
	c.columns = make([]*Column, n)
	for i := range c.columns {
		c.columns[i] = newColumn()
	}
}

// Observe parses one row of raw fields and accumulates its first N values.
// A row is either accumulated entirely or not at all.
func (c *Collector) Observe(fields []string) error {
	if c.sealed {
		return errors.New(errors.ErrorTypeState, "collector already summarized")
	}
	if c.numCols == nil {
		c.initialize(len(fields))
	}

	n := *c.numCols
	if len(fields) < n {
		return shortRow(n, len(fields))
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := ParseField(fields[i])
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid numeric field").
				WithDetail("column", i+1).
				WithDetail("value", fields[i])
		}
		values[i] = v
	}

	c.accumulate(values)
	return nil
}

// ObserveValues accumulates an already parsed row
func (c *Collector) ObserveValues(values []float64) error {
	if c.sealed {
		return errors.New(errors.ErrorTypeState, "collector already summarized")
	}
	if c.numCols == nil {
		c.initialize(len(values))
	}

	n := *c.numCols
	if len(values) < n {
		return shortRow(n, len(values))
	}

	c.accumulate(values[:n])
	return nil
}

func (c *Collector) accumulate(values []float64) {
	for i, v := range values {
		c.columns[i].add(v)
	}
	c.rows++
}

// Summarize sorts every column in place and computes its statistics.
// It may be called once; the collector rejects further rows afterwards.
func (c *Collector) Summarize() ([]Summary, error) {
	if c.sealed {
		return nil, errors.New(errors.ErrorTypeState, "collector already summarized")
	}
	c.sealed = true

	summaries := make([]Summary, 0, len(c.columns))
	for i, col := range c.columns {
		summaries = append(summaries, col.summarize(i+1))
	}
	return summaries, nil
}

func (c *Column) summarize(index int) Summary {
	sort.Float64s(c.values)

	count := len(c.values)
	s := Summary{
		Column: index,
		Count:  count,
		Sum:    c.sum,
	}
	if count == 0 {
		return s
	}

	s.Mean = c.sum / float64(count)
	s.Median = c.values[count/2]
	s.Min = c.values[0]
	s.Max = c.values[count-1]
	if count > 1 {
		s.StdDev = c.running.Stddev()
	}
	return s
}

// ParseField converts one raw field to a float. Surrounding whitespace is
// ignored; integers, decimals, exponents, signs, inf and nan are accepted.
// Hexadecimal literals are rejected. Magnitudes too large for a float64
// become ±Inf rather than an error.
func ParseField(field string) (float64, error) {
	s := strings.TrimSpace(field)
	if hasHexPrefix(s) {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	return v, err
}

func hasHexPrefix(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func shortRow(want, got int) *errors.Error {
	return errors.New(errors.ErrorTypeData, "row has fewer fields than the column count").
		WithDetail("want", want).
		WithDetail("got", got)
}
