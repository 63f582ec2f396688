// Package export renders segmented documents as XML and answers verse
// lookups against those exports with XPath.
package export

import (
	"encoding/xml"
	"io"

	"github.com/FocuswithJustin/tafsirseg/core/digest"
	"github.com/FocuswithJustin/tafsirseg/core/segment"
)

type xmlCommentary struct {
	XMLName  xml.Name     `xml:"commentary"`
	Document string       `xml:"document,attr"`
	Source   string       `xml:"source,attr,omitempty"`
	Intro    *xmlIntro    `xml:"intro,omitempty"`
	Segments []xmlSegment `xml:"segment"`
}

type xmlIntro struct {
	Lines []string `xml:"line"`
}

type xmlSegment struct {
	Name    string   `xml:"name,attr"`
	Ordinal int      `xml:"ordinal,attr"`
	First   int      `xml:"first,attr"`
	Last    int      `xml:"last,attr"`
	Verses  string   `xml:"verses,attr"`
	SHA256  string   `xml:"sha256,attr"`
	Lines   []string `xml:"line"`
}

// WriteXML writes res as an indented <commentary> document. Each segment
// lists its lines in order; the sha256 attribute is the digest of the
// segment body as written by the file and SQLite sinks.
func WriteXML(w io.Writer, res *segment.Result) error {
	doc := xmlCommentary{Document: res.Document, Source: res.Source}
	if res.Intro != nil {
		doc.Intro = &xmlIntro{Lines: res.Intro.Lines}
	}
	for _, s := range res.Segments {
		doc.Segments = append(doc.Segments, xmlSegment{
			Name:    s.Name,
			Ordinal: s.Ordinal,
			First:   s.Verses.Min(),
			Last:    s.Verses.Max(),
			Verses:  s.Verses.String(),
			SHA256:  digest.SHA256([]byte(s.Body())),
			Lines:   s.Lines,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
