package datfile

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datstats/pkg/compression"
	"github.com/ajitpratap0/datstats/pkg/errors"
)

// StatsFile collects rows destined for one stats file. All methods are safe
// for concurrent use.
type StatsFile struct {
	name string
	mu   sync.Mutex
	rows [][]float64
}

// Name returns the file name the rows will be written to
func (f *StatsFile) Name() string {
	return f.name
}

// AddValues appends one row. The slice is copied.
func (f *StatsFile) AddValues(values []float64) {
	row := make([]float64, len(values))
	copy(row, values)

	f.mu.Lock()
	f.rows = append(f.rows, row)
	f.mu.Unlock()
}

// AddFloats appends one row given as arguments
func (f *StatsFile) AddFloats(values ...float64) {
	f.AddValues(values)
}

// AddInts appends one row of integers
func (f *StatsFile) AddInts(values ...int) {
	row := make([]float64, len(values))
	for i, v := range values {
		row[i] = float64(v)
	}
	f.AddValues(row)
}

// Len returns the number of rows collected
func (f *StatsFile) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// Registry tracks stats files by name until they are written out
type Registry struct {
	mu    sync.Mutex
	files map[string]*StatsFile
	opts  []Option
}

// NewRegistry returns an empty registry
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		files: make(map[string]*StatsFile),
		opts:  opts,
	}
}

// File returns a fresh stats file registered under name. Requesting an
// existing name replaces the earlier file and discards its rows.
func (r *Registry) File(name string) *StatsFile {
	f := &StatsFile{name: name}

	r.mu.Lock()
	r.files[name] = f
	r.mu.Unlock()
	return f
}

// Names returns the registered file names in sorted order
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteAll writes every registered file. Files that fail do not stop the
// others; all failures are returned together.
func (r *Registry) WriteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := buildOptions(r.opts)

	var errs []error
	for name, f := range r.files {
		if err := f.writeTo(name, o); err != nil {
			o.logger.Error("failed to write stats file", zap.String("path", name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		o.logger.Debug("stats file written",
			zap.String("path", name),
			zap.Int("rows", f.Len()),
			zap.Stringer("level", o.level))
	}
	return errors.Join(errs...)
}

func (f *StatsFile) writeTo(path string, o *options) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	algo := compression.Resolve(o.compression, path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create stats file").WithDetail("path", path)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to close stats file").WithDetail("path", path)
		}
	}()

	cw, err := compression.NewWriter(file, algo, o.level)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to compress stats file").WithDetail("path", path)
	}

	bw := bufio.NewWriter(cw)
	if err := encodeRows(bw, f.rows); err != nil {
		_ = cw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write stats file").WithDetail("path", path)
	}
	if err := bw.Flush(); err != nil {
		_ = cw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write stats file").WithDetail("path", path)
	}
	if err := cw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush stats file").WithDetail("path", path)
	}
	return nil
}

// encodeRows writes values with six decimals, tabs between fields and
// newlines between rows. There is no trailing newline.
func encodeRows(w *bufio.Writer, rows [][]float64) error {
	buf := make([]byte, 0, 32)
	for i, row := range rows {
		if i > 0 {
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		for j, v := range row {
			if j > 0 {
				if err := w.WriteByte(Delimiter); err != nil {
					return err
				}
			}
			buf = strconv.AppendFloat(buf[:0], v, 'f', 6, 64)
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}
