package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	coreerrors "github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/ulikunitz/xz"
)

type tarEntry struct {
	name string
	data string
}

func writeTar(t *testing.T, w io.Writer, entries []tarEntry) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, e := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name: e.name,
			Mode: 0644,
			Size: int64(len(e.data)),
		}); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(e.data)); err != nil {
			t.Fatalf("write content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
}

func createTestTarGz(t *testing.T, dir string, entries []tarEntry) string {
	t.Helper()
	path := filepath.Join(dir, "test.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	writeTar(t, gw, entries)
	gw.Close()
	return path
}

func createTestTarXz(t *testing.T, dir string, entries []tarEntry) string {
	t.Helper()
	path := filepath.Join(dir, "test.tar.xz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	xw, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	writeTar(t, xw, entries)
	xw.Close()
	return path
}

var sampleEntries = []tarEntry{
	{"2/1.md", "first verse"},
	{"2/intro.md", "preamble"},
}

func TestNewReader(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name:  "tar.gz archive",
			setup: func(t *testing.T) string { return createTestTarGz(t, dir, sampleEntries) },
		},
		{
			name:  "tar.xz archive",
			setup: func(t *testing.T) string { return createTestTarXz(t, dir, sampleEntries) },
		},
		{
			name: "unsupported format",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "test.zip")
				os.WriteFile(path, []byte("not a tar"), 0644)
				return path
			},
			wantErr: true,
		},
		{
			name:    "nonexistent file",
			setup:   func(t *testing.T) string { return filepath.Join(dir, "nonexistent.tar.gz") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			r, err := NewReader(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewReader() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if r != nil {
				if err := r.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}
		})
	}
}

func TestIterateArchive(t *testing.T) {
	path := createTestTarXz(t, t.TempDir(), sampleEntries)

	var names []string
	err := IterateArchive(path, func(h *tar.Header, _ io.Reader) (bool, error) {
		names = append(names, h.Name)
		return false, nil
	})
	if err != nil {
		t.Fatalf("IterateArchive() error = %v", err)
	}
	if len(names) != 2 || names[0] != "2/1.md" || names[1] != "2/intro.md" {
		t.Errorf("names = %v", names)
	}

	var count int
	err = IterateArchive(path, func(*tar.Header, io.Reader) (bool, error) {
		count++
		return true, nil
	})
	if err != nil || count != 1 {
		t.Errorf("stop after first entry: count = %d, err = %v", count, err)
	}
}

func TestReadFile(t *testing.T) {
	path := createTestTarGz(t, t.TempDir(), append(sampleEntries, tarEntry{"./2/2.md", "dotted"}))

	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr error
	}{
		{"segment", "2/1.md", "first verse", nil},
		{"intro", "2/intro.md", "preamble", nil},
		{"dot prefix", "2/2.md", "dotted", nil},
		{"base name only", "1.md", "", coreerrors.ErrNotFound},
		{"missing", "2/9.md", "", coreerrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(path, tt.entry)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ReadFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewReader_CorruptedGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.tar.gz")
	if err := os.WriteFile(path, []byte("not a gzip file"), 0644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := NewReader(path); err == nil {
		t.Error("NewReader() expected error for corrupted gzip")
	}
}

func TestNewReader_CorruptedXz(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.tar.xz")
	if err := os.WriteFile(path, []byte("not an xz file"), 0644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := NewReader(path); err == nil {
		t.Error("NewReader() expected error for corrupted xz")
	}
}
