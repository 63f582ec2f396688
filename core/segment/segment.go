// Package segment splits a numbered surah document into per-verse commentary
// segments.
//
// A document is read top to bottom. Every recognized marker line either opens
// a new group or restates the group already open; the lines in between are
// accumulated into the open group. The first prose line after a new marker is
// shared with the group that was just closed, because the source places a
// citation flush against the end of the previous verse's commentary. A final
// group that regresses below its predecessor is residue from the next surah
// and is dropped.
package segment

import (
	"strings"

	"github.com/FocuswithJustin/tafsirseg/core/marker"
	"github.com/FocuswithJustin/tafsirseg/core/verse"
)

// IntroName is the name of the preamble segment.
const IntroName = "intro"

// Group is the accumulation unit for one verse set.
type Group struct {
	// Ordinal is the 1-based order in which the group was opened.
	Ordinal int
	// Verses are the verses the group's commentary covers.
	Verses verse.Set
	// Lines are the trimmed, non-blank lines accumulated so far.
	Lines []string
}

// Marker is one recognized marker line and its normalized verses.
type Marker struct {
	// LineNumber is the 1-based position of the line in the document.
	LineNumber int
	Citation   marker.Citation
	Verses     verse.Set
}

// Segment is a named output unit.
type Segment struct {
	Name    string
	Ordinal int       // 0 for the intro
	Verses  verse.Set // nil for the intro
	Lines   []string
}

// IsIntro reports whether the segment is the surah preamble.
func (s Segment) IsIntro() bool {
	return s.Verses == nil && s.Name == IntroName
}

// Body renders the segment text. Verse segments separate their lines with a
// blank line; the intro keeps one line per line.
func (s Segment) Body() string {
	if s.IsIntro() {
		return strings.Join(s.Lines, "\n")
	}
	return strings.Join(s.Lines, "\n\n")
}

// Result is the outcome of segmenting one document.
type Result struct {
	// Document identifies the input, e.g. the surah number.
	Document string
	// Source is the path the document was read from, when known.
	Source string
	// Intro is nil unless at least two non-blank lines precede the first marker.
	Intro *Segment
	// Segments are the verse segments in ordinal order.
	Segments []Segment
	// Residue is the dropped trailing group, if any.
	Residue *Group
	// Markers lists every recognized marker in document order.
	Markers []Marker
}

// All returns the intro (if any) followed by the verse segments.
func (r *Result) All() []Segment {
	out := make([]Segment, 0, len(r.Segments)+1)
	if r.Intro != nil {
		out = append(out, *r.Intro)
	}
	return append(out, r.Segments...)
}

// Sequence returns the verse sets of every marker in document order.
func (r *Result) Sequence() []verse.Set {
	seq := make([]verse.Set, len(r.Markers))
	for i, m := range r.Markers {
		seq[i] = m.Verses
	}
	return seq
}

// Covered returns every verse held by an emitted segment or by the dropped residue.
func (r *Result) Covered() verse.Set {
	var covered verse.Set
	for _, s := range r.Segments {
		covered = covered.Union(s.Verses)
	}
	if r.Residue != nil {
		covered = covered.Union(r.Residue.Verses)
	}
	return covered
}

func (g *Group) segment() Segment {
	return Segment{
		Name:    g.Verses.Name(),
		Ordinal: g.Ordinal,
		Verses:  g.Verses,
		Lines:   g.Lines,
	}
}
