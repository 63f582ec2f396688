package segment

import (
	"strings"

	"github.com/FocuswithJustin/tafsirseg/core/marker"
)

// minIntroLines is the smallest preamble kept; a lone line is noise.
const minIntroLines = 2

// ExtractIntro collects the non-blank lines before the first marker. It
// returns nil when fewer than two such lines exist.
func ExtractIntro(lines []string) *Segment {
	var intro []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if marker.IsMarker(trimmed) {
			break
		}
		if trimmed == "" {
			continue
		}
		intro = append(intro, trimmed)
	}
	if len(intro) < minIntroLines {
		return nil
	}
	return &Segment{Name: IntroName, Lines: intro}
}
