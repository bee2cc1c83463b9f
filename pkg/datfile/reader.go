// Package datfile reads and writes stats files: tab-delimited text with one
// row of numeric fields per line, no header, optionally compressed.
package datfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datstats/pkg/compression"
	"github.com/ajitpratap0/datstats/pkg/errors"
)

// Delimiter separates the fields of a row
const Delimiter = '\t'

// RowFunc receives one row. The fields slice is reused between calls and
// must not be retained.
type RowFunc func(line int, fields []string) error

type options struct {
	compression compression.Algorithm
	level       compression.Level
	logger      *zap.Logger
}

// Option configures a Reader or a Registry
type Option func(*options)

// WithCompression forces a compression algorithm instead of detecting it
// from the file extension
func WithCompression(a compression.Algorithm) Option {
	return func(o *options) {
		o.compression = a
	}
}

// WithLevel sets the compression level used by a Registry when writing
// compressed files
func WithLevel(l compression.Level) Option {
	return func(o *options) {
		o.level = l
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		compression: compression.Auto,
		level:       compression.Default,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reader iterates over the rows of a stats file
type Reader struct {
	path      string
	algorithm compression.Algorithm
	file      *os.File
	decomp    io.ReadCloser
	lines     *lineCounter
	csv       *csv.Reader
	logger    *zap.Logger
	rows      int
	closed    bool
}

// Open opens the stats file at path
func Open(path string, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	algo := compression.Resolve(o.compression, path)

	file, err := os.Open(path) //nolint:gosec // G304: the path is the user's input file
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open stats file").
			WithDetail("path", path)
	}

	decomp, err := compression.NewReader(file, algo)
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open compressed stats file").
			WithDetail("path", path).
			WithDetail("compression", string(algo))
	}

	lines := &lineCounter{r: decomp}
	r := csv.NewReader(lines)
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	o.logger.Debug("stats file opened",
		zap.String("path", path),
		zap.String("compression", string(algo)))

	return &Reader{
		path:      path,
		algorithm: algo,
		file:      file,
		decomp:    decomp,
		lines:     lines,
		csv:       r,
		logger:    o.logger,
	}, nil
}

// Path returns the path the reader was opened with
func (r *Reader) Path() string {
	return r.path
}

// Compression returns the algorithm used to decode the file
func (r *Reader) Compression() compression.Algorithm {
	return r.algorithm
}

// Rows returns the number of rows delivered so far
func (r *Reader) Rows() int {
	return r.rows
}

// ForEach calls fn for every row in order. It stops at the first error
// returned by the parser or by fn, or when ctx is cancelled.
//
// An empty line is a row without fields: fn receives an empty slice for it.
// A final newline does not start another row.
func (r *Reader) ForEach(ctx context.Context, fn RowFunc) error {
	if r.closed {
		return errors.New(errors.ErrorTypeState, "reader is closed").WithDetail("path", r.path)
	}

	// last physical line consumed by a delivered row
	consumed := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fields, err := r.csv.Read()
		if err == io.EOF {
			return r.emptyRows(ctx, consumed+1, r.lines.Lines(), fn)
		}
		if err != nil {
			return r.readError(err)
		}

		line, _ := r.csv.FieldPos(0)
		if err := r.emptyRows(ctx, consumed+1, line-1, fn); err != nil {
			return err
		}

		last := len(fields) - 1
		endLine, _ := r.csv.FieldPos(last)
		consumed = endLine + strings.Count(fields[last], "\n")

		if err := r.deliver(line, fields, fn); err != nil {
			return err
		}
	}
}

// emptyRows delivers the lines from..to, which the parser skipped as empty
func (r *Reader) emptyRows(ctx context.Context, from, to int, fn RowFunc) error {
	for line := from; line <= to; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.deliver(line, []string{}, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) deliver(line int, fields []string, fn RowFunc) error {
	r.rows++
	if err := fn(line, fields); err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			if _, ok := e.Detail("line"); !ok {
				e.WithDetail("line", line)
			}
		}
		return err
	}
	return nil
}

func (r *Reader) readError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return errors.Wrap(err, errors.ErrorTypeData, "malformed row").
			WithDetail("path", r.path).
			WithDetail("line", parseErr.StartLine)
	}
	return errors.Wrap(err, errors.ErrorTypeFile, "failed to read stats file").
		WithDetail("path", r.path)
}

// Close releases the file handle. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if err := r.decomp.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), errors.ErrorTypeFile, "failed to close stats file").
			WithDetail("path", r.path)
	}

	r.logger.Debug("stats file closed", zap.String("path", r.path), zap.Int("rows", r.rows))
	return nil
}

// lineCounter counts the physical lines of everything read through it
type lineCounter struct {
	r        io.Reader
	newlines int
	read     int64
	last     byte
}

func (c *lineCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.newlines += bytes.Count(p[:n], []byte{'\n'})
		c.read += int64(n)
		c.last = p[n-1]
	}
	return n, err
}

// Lines returns the number of lines seen so far. Text after the last newline
// counts as a line; a final newline does not open a new one.
func (c *lineCounter) Lines() int {
	if c.read == 0 || c.last == '\n' {
		return c.newlines
	}
	return c.newlines + 1
}

// ReadFile opens path, feeds every row to fn and always closes the file
func ReadFile(ctx context.Context, path string, fn RowFunc, opts ...Option) (err error) {
	r, err := Open(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return r.ForEach(ctx, fn)
}
