// Package pages cuts per-surah documents out of the full commentary, a
// markdown file reconstructed from scanned pages with "# Page N" headers.
// Each surah is emitted as numbered lines ("[n]: text") so marker
// recognition can anchor on the line tag.
package pages

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/internal/validation"
)

// TailPages is how far past the last page extraction continues. Commentary
// on a surah's last verses runs onto the following page, so extraction stops
// at the header of page last+TailPages.
const TailPages = 2

var (
	pageNumberLine = regexp.MustCompile(`^#[\s\p{Zs}]Page[\s\p{Zs}]\d+$|^\p{Nd}+$`)
	emphasisLine   = regexp.MustCompile(`^\*+$`)
)

// Range locates one surah in the commentary.
type Range struct {
	Name      string `json:"name"`
	FirstPage int    `json:"first_page"`
	LastPage  int    `json:"last_page"`
}

// Ranges maps document ids (surah numbers) to page ranges.
type Ranges map[string]Range

// LoadRanges reads a page range file:
//
//	{"2": {"name": "البقرة", "first_page": 12, "last_page": 280}}
func LoadRanges(path string) (Ranges, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	return ReadRanges(f, path)
}

// ReadRanges decodes and checks a page range file; name is used in errors.
func ReadRanges(r io.Reader, name string) (Ranges, error) {
	var rs Ranges
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rs); err != nil {
		return nil, errors.NewParse("page ranges", name, err.Error())
	}
	for id, rng := range rs {
		if err := validation.ValidateDocumentID(id); err != nil {
			return nil, errors.NewValidation("page ranges", fmt.Sprintf("%s: id %q: %v", name, id, err))
		}
		if rng.FirstPage < 1 || rng.LastPage < rng.FirstPage {
			return nil, errors.NewValidation("page ranges",
				fmt.Sprintf("%s: surah %s has pages %d..%d", name, id, rng.FirstPage, rng.LastPage))
		}
	}
	return rs, nil
}

// IDs returns the document ids in numeric order, non-numeric ids last.
func (rs Ranges) IDs() []string {
	ids := make([]string, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

// IsPresentational reports whether a trimmed line is layout rather than
// text: a horizontal rule, an emphasis-only line, or a page number.
func IsPresentational(line string) bool {
	return line == "---" || emphasisLine.MatchString(line) || pageNumberLine.MatchString(line)
}

func pageHeader(n int) string {
	return "# Page " + strconv.Itoa(n)
}

// Extract reads the commentary from r and returns the trimmed text lines of rng.
func Extract(r io.Reader, rng Range) ([]string, error) {
	lines, err := segment.ReadLines(r)
	if err != nil {
		return nil, err
	}
	return ExtractLines(lines, rng)
}

// ExtractLines returns the trimmed text lines that follow the header of
// rng.FirstPage up to the header of rng.LastPage+TailPages (or the end of
// input). Blank and presentational lines are skipped.
func ExtractLines(lines []string, rng Range) ([]string, error) {
	start, stop := pageHeader(rng.FirstPage), pageHeader(rng.LastPage+TailPages)

	var out []string
	parsing := false
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if !parsing {
			parsing = line == start
			continue
		}
		if line == stop {
			break
		}
		if line == "" || IsPresentational(line) {
			continue
		}
		out = append(out, line)
	}
	if !parsing {
		return nil, errors.NewNotFound("page", start)
	}
	return out, nil
}

// Number tags each line with its 1-based position: "[n]: line".
func Number(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("[%d]: %s", i+1, l)
	}
	return out
}

// WriteDocument writes numbered lines separated by blank lines.
func WriteDocument(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range Number(lines) {
		if _, err := bw.WriteString(l + "\n\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
