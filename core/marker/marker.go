// Package marker recognizes the verse-citation lines that open each verse's
// commentary in a numbered surah document.
//
// A marker line looks like
//
//	[57]: ** سورة البقرة، الآيات: ﴿١ - ٥﴾
//
// i.e. a bracketed line-number tag, optional markdown emphasis or heading
// punctuation, the word "سورة", the surah name, one of the three forms of
// "آية" (singular, dual, plural), an optional colon and the numeral range,
// optionally wrapped in ornate parentheses.
package marker

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// space matches ASCII whitespace plus the Unicode space separators (no-break
// space and friends) that OCR output leaves behind.
const space = `\s\p{Zs}`

// pattern is compiled once and shared by every document.
var pattern = regexp.MustCompile(
	`^\[([0-9]+)\]:[` + space + `][*#` + space + `]*سورة[` + space + `].*الآ(?:ية|يتان|يات)` +
		`[` + space + `]*:?[` + space + `]*` +
		`\x{FD3F}?[` + space + `]*` +
		`(?P<ayahs>[\p{Nd}` + space + `\-–ـ،,]+)` +
		`\x{FD3E}?[` + space + `]*`,
)

var ayahsIndex = pattern.SubexpIndex("ayahs")

// Citation is a recognized marker line.
type Citation struct {
	// Tag is the number inside the leading "[n]:" tag.
	Tag int
	// Line is the trimmed source line as it appeared in the document.
	Line string
	// Raw is the captured numeral-range expression, unnormalized.
	Raw string
}

// Recognize reports whether line is a marker and, if so, returns its citation.
// Only leading and trailing whitespace is trimmed before matching; the match is
// made against the NFC form so decomposed alef-madda still counts.
func Recognize(line string) (Citation, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Citation{}, false
	}

	m := pattern.FindStringSubmatch(norm.NFC.String(trimmed))
	if m == nil {
		return Citation{}, false
	}

	tag, err := strconv.Atoi(m[1])
	if err != nil {
		tag = 0
	}
	return Citation{Tag: tag, Line: trimmed, Raw: m[ayahsIndex]}, true
}

// IsMarker is Recognize without the citation.
func IsMarker(line string) bool {
	_, ok := Recognize(line)
	return ok
}
