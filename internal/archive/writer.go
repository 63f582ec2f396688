package archive

import (
	"archive/tar"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/tafsirseg/core/digest"
	"github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/ulikunitz/xz"
)

// ManifestName is the first entry of every archive written by Pack.
const ManifestName = "manifest.json"

// FormatVersion identifies the manifest layout.
const FormatVersion = "tafsirseg-segments/1"

// Manifest describes the contents of an archive.
type Manifest struct {
	Format  string    `json:"format"`
	RunID   string    `json:"run_id,omitempty"`
	Created time.Time `json:"created"`
	Files   []Entry   `json:"files"`
}

// Entry is one archived file.
type Entry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	digest.Hashes
}

type packedFile struct {
	entry Entry
	data  []byte
}

// now is a variable to allow deterministic archives in tests.
var now = time.Now

// Pack writes every regular file under srcDir into a tar.xz archive at dst,
// preceded by a manifest carrying each file's digests. Hidden files and
// directories are skipped. Entries are stored in lexical order with the
// manifest's creation time so equal inputs produce equal archives.
func Pack(srcDir, dst, runID string) (*Manifest, error) {
	var files []packedFile
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != srcDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, packedFile{
			entry: Entry{Path: filepath.ToSlash(rel), Size: int64(len(data)), Hashes: digest.Sum(data)},
			data:  data,
		})
		return nil
	})
	if err != nil {
		return nil, errors.NewIO("walk", srcDir, err)
	}
	if len(files) == 0 {
		return nil, errors.NewValidation("source", "no files to pack in "+srcDir)
	}

	m := &Manifest{Format: FormatVersion, RunID: runID, Created: now().UTC().Truncate(time.Second)}
	for _, f := range files {
		m.Files = append(m.Files, f.entry)
	}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, errors.NewIO("create parent directory of", dst, err)
	}
	tmp := dst + ".tmp"
	if err := writeTarXz(tmp, m.Created, manifest, files); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return nil, errors.NewIO("rename", dst, err)
	}
	return m, nil
}

func writeTarXz(path string, mtime time.Time, manifest []byte, files []packedFile) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer out.Close()

	xw, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(xw)

	write := func(name string, data []byte) error {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(data)),
			ModTime:  mtime,
			Typeflag: tar.TypeReg,
		}); err != nil {
			return err
		}
		_, err := tw.Write(data)
		return err
	}

	if err := write(ManifestName, manifest); err != nil {
		return errors.NewIO("write", ManifestName, err)
	}
	for _, f := range files {
		if err := write(f.entry.Path, f.data); err != nil {
			return errors.NewIO("write", f.entry.Path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return errors.NewIO("finish tar", path, err)
	}
	if err := xw.Close(); err != nil {
		return errors.NewIO("finish xz", path, err)
	}
	return out.Close()
}
