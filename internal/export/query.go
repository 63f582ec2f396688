package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/core/verse"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document is a parsed XML export.
type Document struct {
	root *xmlquery.Node
}

// Parse reads an XML export.
func Parse(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.NewParse("XML", "", err.Error())
	}
	if xmlquery.FindOne(root, "/commentary") == nil {
		return nil, errors.NewParse("XML", "", "missing <commentary> root element")
	}
	return &Document{root: root}, nil
}

// ID returns the document attribute of the root element.
func (d *Document) ID() string {
	return xmlquery.FindOne(d.root, "/commentary").SelectAttr("document")
}

// query compiles expr before running it so malformed expressions are
// reported as errors rather than panics.
func (d *Document) query(expr string) ([]*xmlquery.Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return xmlquery.QuerySelectorAll(d.root, compiled), nil
}

// Intro returns the preamble, or nil when the export has none.
func (d *Document) Intro() (*segment.Segment, error) {
	nodes, err := d.query("/commentary/intro")
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return &segment.Segment{Name: segment.IntroName, Lines: lines(nodes[0])}, nil
}

// Segments returns every verse segment in document order.
func (d *Document) Segments() ([]segment.Segment, error) {
	nodes, err := d.query("/commentary/segment")
	if err != nil {
		return nil, err
	}
	out := make([]segment.Segment, 0, len(nodes))
	for _, n := range nodes {
		s, err := toSegment(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Segment returns the verse segment whose verse list contains v. A span like
// "4-6" built from the citation "4، 6" does not match verse 5.
func (d *Document) Segment(v int) (segment.Segment, error) {
	expr := "/commentary/segment[contains(concat(',', @verses, ','), '," + strconv.Itoa(v) + ",')]"
	nodes, err := d.query(expr)
	if err != nil {
		return segment.Segment{}, err
	}
	if len(nodes) == 0 {
		return segment.Segment{}, errors.NewNotFound("segment", fmt.Sprintf("%s:%d", d.ID(), v))
	}
	return toSegment(nodes[0])
}

// QueryXML parses an export from r and returns the segment covering v.
func QueryXML(r io.Reader, v int) (segment.Segment, error) {
	d, err := Parse(r)
	if err != nil {
		return segment.Segment{}, err
	}
	return d.Segment(v)
}

func toSegment(n *xmlquery.Node) (segment.Segment, error) {
	set, err := verse.Normalize(n.SelectAttr("verses"))
	if err != nil {
		return segment.Segment{}, fmt.Errorf("segment %s: %w", n.SelectAttr("name"), err)
	}
	ordinal, err := strconv.Atoi(n.SelectAttr("ordinal"))
	if err != nil {
		return segment.Segment{}, fmt.Errorf("segment %s: ordinal: %w", n.SelectAttr("name"), err)
	}
	return segment.Segment{
		Name:    n.SelectAttr("name"),
		Ordinal: ordinal,
		Verses:  set,
		Lines:   lines(n),
	}, nil
}

func lines(n *xmlquery.Node) []string {
	var out []string
	for _, l := range xmlquery.Find(n, "line") {
		out = append(out, l.InnerText())
	}
	return out
}
