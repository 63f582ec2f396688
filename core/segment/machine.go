package segment

import (
	"errors"
	"strings"

	coreerrors "github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/marker"
	"github.com/FocuswithJustin/tafsirseg/core/verse"
)

type state int

const (
	beforeFirstMarker state = iota
	accumulating
	atBoundary
)

func (s state) String() string {
	switch s {
	case beforeFirstMarker:
		return "before-first-marker"
	case accumulating:
		return "accumulating"
	case atBoundary:
		return "at-boundary"
	default:
		return "unknown"
	}
}

// machine holds the per-document segmentation state. It is used once and
// discarded.
type machine struct {
	state    state
	lineNo   int
	nonBlank int
	groups   []*Group
	markers  []Marker
}

func (m *machine) current() *Group {
	return m.groups[len(m.groups)-1]
}

func (m *machine) previous() *Group {
	if len(m.groups) < 2 {
		return nil
	}
	return m.groups[len(m.groups)-2]
}

// feed processes the next line of the document.
func (m *machine) feed(line string) error {
	m.lineNo++
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	m.nonBlank++

	c, ok := marker.Recognize(trimmed)
	if !ok {
		m.appendText(trimmed)
		return nil
	}

	verses, err := verse.Normalize(c.Raw)
	if err != nil {
		if errors.Is(err, verse.ErrEmptyCitation) {
			return &coreerrors.RecognitionError{LineNumber: m.lineNo, Line: trimmed, Citation: c.Raw}
		}
		return err
	}
	m.markers = append(m.markers, Marker{LineNumber: m.lineNo, Citation: c, Verses: verses})

	switch {
	case m.state == beforeFirstMarker:
		m.open(verses, trimmed)
		m.state = accumulating
	case m.current().Verses.Contains(verses.Min()):
		// Restatement of the open group. Verses it adds are folded in so no
		// cited verse goes missing from the output.
		cur := m.current()
		cur.Verses = cur.Verses.Union(verses)
		cur.Lines = append(cur.Lines, trimmed)
		m.state = accumulating
	default:
		m.open(verses, trimmed)
		m.state = atBoundary
	}
	return nil
}

func (m *machine) appendText(line string) {
	switch m.state {
	case beforeFirstMarker:
		// Intro lines are collected by ExtractIntro.
	case accumulating:
		m.current().Lines = append(m.current().Lines, line)
	case atBoundary:
		m.current().Lines = append(m.current().Lines, line)
		if prev := m.previous(); prev != nil {
			prev.Lines = append(prev.Lines, line)
		}
		m.state = accumulating
	}
}

func (m *machine) open(verses verse.Set, line string) {
	m.groups = append(m.groups, &Group{
		Ordinal: len(m.groups) + 1,
		Verses:  verses,
		Lines:   []string{line},
	})
}

// finish detaches trailing residue and returns the groups to emit.
func (m *machine) finish() (groups []*Group, residue *Group) {
	groups = m.groups
	if len(groups) < 2 {
		return groups, nil
	}
	last, prev := groups[len(groups)-1], groups[len(groups)-2]
	if last.Verses.Min() < prev.Verses.Max() {
		return groups[:len(groups)-1], last
	}
	return groups, nil
}
