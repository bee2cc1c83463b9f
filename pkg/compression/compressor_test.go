package compression

import (
	"bytes"
	"io"
	"testing"
)

func TestStreamRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("1.000000\t10.000000\n2.000000\t20.000000\n"), 200)

	algorithms := []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}
	levels := []Level{Fastest, Default, Better, Best}

	for _, algo := range algorithms {
		for _, level := range levels {
			t.Run(string(algo)+"/"+level.String(), func(t *testing.T) {
				var buf bytes.Buffer
				w, err := NewWriter(&buf, algo, level)
				if err != nil {
					t.Fatalf("Failed to create writer: %v", err)
				}
				if _, err := w.Write(original); err != nil {
					t.Fatalf("Failed to write: %v", err)
				}
				if err := w.Close(); err != nil {
					t.Fatalf("Failed to close writer: %v", err)
				}

				r, err := NewReader(&buf, algo)
				if err != nil {
					t.Fatalf("Failed to create reader: %v", err)
				}
				defer r.Close()

				got, err := io.ReadAll(r)
				if err != nil {
					t.Fatalf("Failed to read: %v", err)
				}
				if !bytes.Equal(original, got) {
					t.Errorf("Decompressed data doesn't match original (%d vs %d bytes)", len(got), len(original))
				}
			})
		}
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]Algorithm{
		"crawl.dat":        None,
		"crawl.dat.gz":     Gzip,
		"crawl.dat.GZ":     Gzip,
		"crawl.dat.zst":    Zstd,
		"crawl.dat.lz4":    LZ4,
		"crawl.dat.sz":     Snappy,
		"crawl.dat.s2":     S2,
		"/tmp/no-ext-file": None,
	}

	for path, want := range tests {
		if got := Detect(path); got != want {
			t.Errorf("Detect(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(Auto, "x.dat.zst"); got != Zstd {
		t.Errorf("Resolve(Auto) = %s, want zstd", got)
	}
	if got := Resolve(None, "x.dat.zst"); got != None {
		t.Errorf("Resolve(None) = %s, want none", got)
	}
}

func TestParseAlgorithm(t *testing.T) {
	if a, err := ParseAlgorithm(""); err != nil || a != Auto {
		t.Errorf("ParseAlgorithm(\"\") = %s, %v", a, err)
	}
	if a, err := ParseAlgorithm(" GZIP "); err != nil || a != Gzip {
		t.Errorf("ParseAlgorithm(GZIP) = %s, %v", a, err)
	}
	if _, err := ParseAlgorithm("brotli"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestNewReaderRejectsCorruptGzip(t *testing.T) {
	if _, err := NewReader(bytes.NewReader([]byte("plain text")), Gzip); err == nil {
		t.Error("expected error for non-gzip input")
	}
}
