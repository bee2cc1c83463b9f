package datfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/datstats/pkg/compression"
	"github.com/ajitpratap0/datstats/pkg/errors"
	"github.com/ajitpratap0/datstats/pkg/testutil"
)

type row struct {
	line   int
	fields []string
}

func collect(t *testing.T, path string, opts ...Option) ([]row, error) {
	t.Helper()
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	var rows []row
	err := ReadFile(ctx, path, func(line int, fields []string) error {
		rows = append(rows, row{line: line, fields: append([]string{}, fields...)})
		return nil
	}, opts...)
	return rows, err
}

func TestReadFile(t *testing.T) {
	path := testutil.WriteDatFile(t, "basic.dat",
		[]string{"1", "10"},
		[]string{"2", "20"},
		[]string{"3", "30", "300"},
	)

	rows, err := collect(t, path, WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"1", "10"}, rows[0].fields)
	assert.Equal(t, []string{"3", "30", "300"}, rows[2].fields)
	assert.Equal(t, 1, rows[0].line)
	assert.Equal(t, 3, rows[2].line)
}

func TestReadFile_EmptyLinesAreRows(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []row
	}{
		{
			name:    "between rows",
			content: "1\t10\n\n2\t20\n",
			want: []row{
				{line: 1, fields: []string{"1", "10"}},
				{line: 2, fields: []string{}},
				{line: 3, fields: []string{"2", "20"}},
			},
		},
		{
			name:    "leading",
			content: "\n1\t10\n2\t20\n",
			want: []row{
				{line: 1, fields: []string{}},
				{line: 2, fields: []string{"1", "10"}},
				{line: 3, fields: []string{"2", "20"}},
			},
		},
		{
			name:    "trailing",
			content: "1\t10\n\n\n",
			want: []row{
				{line: 1, fields: []string{"1", "10"}},
				{line: 2, fields: []string{}},
				{line: 3, fields: []string{}},
			},
		},
		{
			name:    "crlf",
			content: "1\t10\r\n\r\n2\t20",
			want: []row{
				{line: 1, fields: []string{"1", "10"}},
				{line: 2, fields: []string{}},
				{line: 3, fields: []string{"2", "20"}},
			},
		},
		{
			name:    "after multi-line quoted field",
			content: "\"1\n\"\t10\n\n2\t20",
			want: []row{
				{line: 1, fields: []string{"1\n", "10"}},
				{line: 3, fields: []string{}},
				{line: 4, fields: []string{"2", "20"}},
			},
		},
		{
			name:    "single final newline",
			content: "1\t10\n2\t20\n",
			want: []row{
				{line: 1, fields: []string{"1", "10"}},
				{line: 2, fields: []string{"2", "20"}},
			},
		},
		{
			name:    "only a newline",
			content: "\n",
			want: []row{
				{line: 1, fields: []string{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, "blank.dat", []byte(tt.content))

			rows, err := collect(t, path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestReadFile_EmptyLineInCompressedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.dat.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := compression.NewWriter(f, compression.Gzip, compression.Default)
	require.NoError(t, err)
	_, err = w.Write([]byte("1\t10\n\n\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	rows, err := collect(t, path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[2].fields)
	assert.Equal(t, 3, rows[2].line)
}

func TestReadFile_EmptyLineErrorGetsLine(t *testing.T) {
	path := testutil.WriteFile(t, "blank.dat", []byte("1\t10\n\n2\t20\n"))

	err := ReadFile(context.Background(), path, func(line int, fields []string) error {
		if len(fields) == 0 {
			return errors.New(errors.ErrorTypeData, "row has fewer fields than the column count")
		}
		return nil
	})
	require.Error(t, err)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	line, ok := e.Detail("line")
	require.True(t, ok)
	assert.Equal(t, 2, line)
}

func TestReadFile_EmptyFile(t *testing.T) {
	path := testutil.WriteFile(t, "empty.dat", nil)

	rows, err := collect(t, path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadFile_QuotedFields(t *testing.T) {
	path := testutil.WriteFile(t, "quoted.dat", []byte("\"1.5\"\t2\n"))

	rows, err := collect(t, path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1.5", "2"}, rows[0].fields)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.dat"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestForEach_CallbackErrorGetsLine(t *testing.T) {
	path := testutil.WriteDatFile(t, "fail.dat", []string{"1"}, []string{"2"})

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	err := ReadFile(ctx, path, func(line int, fields []string) error {
		if line == 2 {
			return errors.New(errors.ErrorTypeData, "boom")
		}
		return nil
	})
	require.Error(t, err)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	line, ok := e.Detail("line")
	assert.True(t, ok)
	assert.Equal(t, 2, line)
}

func TestForEach_CancelledContext(t *testing.T) {
	path := testutil.WriteDatFile(t, "cancel.dat", []string{"1"})

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = r.ForEach(ctx, func(int, []string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.Rows())
}

func TestReader_CloseTwice(t *testing.T) {
	path := testutil.WriteDatFile(t, "close.dat", []string{"1"})

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, r.Path())
	assert.Equal(t, compression.None, r.Compression())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	err = r.ForEach(context.Background(), func(int, []string) error { return nil })
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))
}

func TestRegistry_WriteAllRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "peers.dat")
	packed := filepath.Join(dir, "peers.dat.zst")

	reg := NewRegistry(WithLogger(testutil.TestLogger(t)))
	for _, name := range []string{plain, packed} {
		f := reg.File(name)
		f.AddInts(1, 10)
		f.AddFloats(2.5, -20)
		f.AddValues([]float64{3, 30})
		assert.Equal(t, 3, f.Len())
	}
	assert.Equal(t, []string{plain, packed}, reg.Names())

	require.NoError(t, reg.WriteAll())

	raw, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, "1.000000\t10.000000\n2.500000\t-20.000000\n3.000000\t30.000000", string(raw))

	want := [][]string{
		{"1.000000", "10.000000"},
		{"2.500000", "-20.000000"},
		{"3.000000", "30.000000"},
	}
	for _, path := range []string{plain, packed} {
		rows, err := collect(t, path)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for i := range want {
			assert.Equal(t, want[i], rows[i].fields)
		}
	}
}

func TestRegistry_WithLevel(t *testing.T) {
	values := make([]float64, 2000)
	for i := range values {
		values[i] = float64(i % 7)
	}

	sizes := map[compression.Level]int64{}
	for _, level := range []compression.Level{compression.Fastest, compression.Best} {
		t.Run(level.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "levels.dat.gz")
			reg := NewRegistry(WithLevel(level), WithLogger(testutil.TestLogger(t)))
			f := reg.File(path)
			for _, v := range values {
				f.AddFloats(v, v*2)
			}
			require.NoError(t, reg.WriteAll())

			info, err := os.Stat(path)
			require.NoError(t, err)
			sizes[level] = info.Size()

			rows, err := collect(t, path)
			require.NoError(t, err)
			require.Len(t, rows, len(values))
			assert.Equal(t, []string{"6.000000", "12.000000"}, rows[6].fields)
		})
	}
	assert.LessOrEqual(t, sizes[compression.Best], sizes[compression.Fastest])
}

func TestRegistry_FileReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replaced.dat")

	reg := NewRegistry()
	reg.File(path).AddInts(1)
	reg.File(path).AddInts(2)

	require.NoError(t, reg.WriteAll())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2.000000", string(raw))
}

func TestRegistry_WriteAllReportsFailures(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "missing-dir", "x.dat")
	good := filepath.Join(t.TempDir(), "ok.dat")

	reg := NewRegistry()
	reg.File(bad).AddInts(1)
	reg.File(good).AddInts(2)

	err := reg.WriteAll()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	_, statErr := os.Stat(good)
	assert.NoError(t, statErr)
}

func TestStatsFile_ConcurrentAdds(t *testing.T) {
	f := NewRegistry().File("concurrent.dat")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.AddInts(i, j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 800, f.Len())
	assert.Equal(t, "concurrent.dat", f.Name())
}
