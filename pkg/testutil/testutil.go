// Package testutil provides testing utilities for datstats
package testutil

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteDatFile writes rows as a tab-delimited stats file in a temporary
// directory and returns its path. Rows are joined with newlines and the file
// ends without a trailing newline.
func WriteDatFile(t *testing.T, name string, rows ...[]string) string {
	t.Helper()

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, "\t")
	}
	return WriteFile(t, name, []byte(strings.Join(lines, "\n")))
}

// WriteFile writes raw content to name inside a per-test temporary directory
func WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// RandomRows generates rows of numeric fields with a fixed seed
func RandomRows(seed int64, rows, cols int) [][]string {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test data

	out := make([][]string, rows)
	for i := range out {
		row := make([]string, cols)
		for j := range row {
			row[j] = strconv.FormatFloat(rng.NormFloat64()*100, 'g', -1, 64)
		}
		out[i] = row
	}
	return out
}
