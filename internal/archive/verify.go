package archive

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/FocuswithJustin/tafsirseg/core/digest"
	"github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/internal/validation"
)

// ReadManifest returns the manifest of an archive written by Pack.
func ReadManifest(path string) (*Manifest, error) {
	data, err := ReadFile(path, ManifestName)
	if err != nil {
		return nil, err
	}
	return parseManifest(path, data)
}

func parseManifest(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errors.ParseError{Format: "manifest", Path: path, Message: err.Error(), Err: err}
	}
	if m.Format != FormatVersion {
		return nil, errors.NewParse("manifest", path, fmt.Sprintf("unknown format %q", m.Format))
	}
	for _, e := range m.Files {
		if _, err := validation.SanitizePath(".", e.Path); err != nil {
			return nil, &errors.ParseError{Format: "manifest", Path: path, Message: fmt.Sprintf("entry %q: %v", e.Path, err), Err: err}
		}
		if !digest.IsValid(e.SHA256) || !digest.IsValid(e.BLAKE3) {
			return nil, errors.NewParse("manifest", path, fmt.Sprintf("entry %s: malformed digest", e.Path))
		}
	}
	return &m, nil
}

// Verify re-reads every entry of the archive and checks it against the
// manifest. The manifest must be the first entry; every listed file must be
// present with matching size and digests, and no unlisted file may appear.
func Verify(path string) (*Manifest, error) {
	var m *Manifest
	want := map[string]Entry{}
	seen := map[string]bool{}
	var problems []string

	err := IterateArchive(path, func(h *tar.Header, r io.Reader) (bool, error) {
		if h.Typeflag == tar.TypeDir {
			return false, nil
		}
		name := strings.TrimPrefix(h.Name, "./")
		data, err := io.ReadAll(r)
		if err != nil {
			return true, fmt.Errorf("read %s: %w", name, err)
		}

		if m == nil {
			if name != ManifestName {
				return true, errors.NewValidation("archive", fmt.Sprintf("first entry is %s, want %s", name, ManifestName))
			}
			m, err = parseManifest(path, data)
			if err != nil {
				return true, err
			}
			for _, e := range m.Files {
				want[e.Path] = e
			}
			return false, nil
		}

		e, ok := want[name]
		switch {
		case !ok:
			problems = append(problems, name+": not in manifest")
		case e.Size != int64(len(data)) || !e.Hashes.Verify(data):
			got := digest.Sum(data)
			problems = append(problems, fmt.Sprintf("%s: digest mismatch (sha256 %s, want %s)", name, got.SHA256, e.SHA256))
		}
		seen[name] = true
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewValidation("archive", "empty archive")
	}

	for p := range want {
		if !seen[p] {
			problems = append(problems, p+": missing")
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return m, errors.NewValidation("archive", strings.Join(problems, "; "))
	}
	return m, nil
}
