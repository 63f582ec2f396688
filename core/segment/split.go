package segment

import (
	"bufio"
	"fmt"
	"io"

	"github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/verse"
)

// maxLineBytes bounds a single document line. OCR output occasionally
// produces whole pages without a newline.
const maxLineBytes = 4 << 20

// ReadLines reads a document into memory, one entry per line.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", "document", err)
	}
	return lines, nil
}

// SplitReader reads a document and splits it; see Split.
func SplitReader(doc string, r io.Reader) (*Result, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return Split(doc, lines)
}

// Split partitions a document into verse segments and its intro.
//
// The document either succeeds as a whole or fails: a citation that yields no
// verses returns a *errors.RecognitionError, a document without any marker
// returns a *errors.NoMarkersError, and a citation sequence that skips or
// regresses returns a *errors.OrderingError.
func Split(doc string, lines []string) (*Result, error) {
	m := &machine{}
	for _, line := range lines {
		if err := m.feed(line); err != nil {
			return nil, errors.Wrap(err, "document "+doc)
		}
	}
	if len(m.groups) == 0 {
		return nil, &errors.NoMarkersError{Document: doc, Empty: m.nonBlank == 0}
	}

	res := &Result{Document: doc, Markers: m.markers}
	if err := verse.ValidateSequence(res.Sequence()); err != nil {
		return nil, errors.Wrap(err, "document "+doc)
	}

	groups, residue := m.finish()
	res.Residue = residue

	seen := make(map[string]int, len(groups))
	for _, g := range groups {
		s := g.segment()
		if ord, dup := seen[s.Name]; dup {
			return nil, &errors.ValidationError{
				Field:   "segment",
				Value:   s.Name,
				Message: fmt.Sprintf("document %s: groups #%d and #%d share the name %s", doc, ord, s.Ordinal, s.Name),
			}
		}
		seen[s.Name] = s.Ordinal
		res.Segments = append(res.Segments, s)
	}

	res.Intro = ExtractIntro(lines)
	return res, nil
}
