package verse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/tafsirseg/core/cache"
	"github.com/FocuswithJustin/tafsirseg/core/errors"
)

// ErrEmptyCitation is returned by Normalize when a citation holds no usable
// verse number.
var ErrEmptyCitation = fmt.Errorf("%w: empty verse set", errors.ErrRecognition)

// arabicIndic maps the Arabic-Indic digits U+0660..U+0669 to ASCII.
var arabicIndic = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// Runs of whitespace include the Unicode space separators, not only ASCII.
var (
	// Hyphen, en-dash and tatweel all separate range endpoints.
	dashRun = regexp.MustCompile(`[\s\p{Zs}]*[-–ـ][\s\p{Zs}]*`)
	// ASCII and Arabic commas separate parts.
	commaRun = regexp.MustCompile(`[\s\p{Zs}]*[,،][\s\p{Zs}]*`)
)

// rangePart is the participle grammar for one comma-separated part:
// a single verse "7" or a range "3-9" (either endpoint may come first).
//
//nolint:govet // participle grammar tags are not standard struct tags
type rangePart struct {
	Start int  `parser:"@Int"`
	End   *int `parser:"( \"-\" @Int )?"`
}

var partLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Whitespace", Pattern: `[\s\p{Zs}]+`},
	{Name: "Other", Pattern: `.`},
})

var partParser = participle.MustBuild[rangePart](
	participle.Lexer(partLexer),
	participle.Elide("Whitespace"),
)

// parts memoizes parsePart; the same few citation parts recur in every surah.
var parts = cache.New[string, []int](4096)

// TranslateDigits rewrites Arabic-Indic digits as Western digits and leaves
// every other character untouched.
func TranslateDigits(s string) string {
	return arabicIndic.Replace(s)
}

// Canonicalize translates digits and collapses whitespace around dash-family
// and comma-family separators to a single "-" or ",".
func Canonicalize(citation string) string {
	s := TranslateDigits(citation)
	s = dashRun.ReplaceAllString(s, "-")
	s = commaRun.ReplaceAllString(s, ",")
	return s
}

// Normalize converts a raw citation into its verse set. Parts that are neither
// a number nor a two-endpoint range are noise and are skipped. A citation that
// leaves nothing behind returns ErrEmptyCitation.
func Normalize(citation string) (Set, error) {
	var nums []int
	for _, part := range strings.Split(Canonicalize(citation), ",") {
		part = strings.TrimSpace(part)
		nums = append(nums, parts.GetOrCompute(part, func() []int { return parsePart(part) })...)
	}
	set := NewSet(nums...)
	if len(set) == 0 {
		return nil, ErrEmptyCitation
	}
	return set, nil
}

// MustNormalize is Normalize for literals in tests and tables; it panics on error.
func MustNormalize(citation string) Set {
	set, err := Normalize(citation)
	if err != nil {
		panic(fmt.Sprintf("verse: %q: %v", citation, err))
	}
	return set
}

func parsePart(part string) []int {
	part = strings.TrimSpace(part)
	if part == "" {
		return nil
	}
	parsed, err := partParser.ParseString("", part)
	if err != nil {
		return nil
	}
	if parsed.End == nil {
		return []int{parsed.Start}
	}

	lo, hi := parsed.Start, *parsed.End
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi > MaxVerse {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}
