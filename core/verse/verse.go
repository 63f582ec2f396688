// Package verse models sets of verse numbers cited by commentary markers and
// the rules that relate successive citations.
package verse

import (
	"sort"
	"strconv"
	"strings"
)

// MaxVerse is the highest verse number a citation may carry. Al-Baqarah, the
// longest surah, has 286 verses.
const MaxVerse = 286

// Set is a strictly ascending, deduplicated sequence of positive verse numbers.
// The zero value is the empty set.
type Set []int

// NewSet builds a Set from arbitrary verse numbers, dropping duplicates and
// anything outside 1..MaxVerse.
func NewSet(nums ...int) Set {
	seen := make(map[int]struct{}, len(nums))
	out := make(Set, 0, len(nums))
	for _, n := range nums {
		if n < 1 || n > MaxVerse {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Min returns the lowest verse number, or 0 for the empty set.
func (s Set) Min() int {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// Max returns the highest verse number, or 0 for the empty set.
func (s Set) Max() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Contains reports whether v is in the set.
func (s Set) Contains(v int) bool {
	i := sort.SearchInts(s, v)
	return i < len(s) && s[i] == v
}

// Equal reports whether both sets hold the same verses.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Union returns a new set holding the verses of both.
func (s Set) Union(other Set) Set {
	merged := make([]int, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewSet(merged...)
}

// Name renders the set the way segments are named: "7" for a single verse,
// "first-last" otherwise. The set may be non-contiguous; only its bounds appear.
func (s Set) Name() string {
	switch len(s) {
	case 0:
		return ""
	case 1:
		return strconv.Itoa(s[0])
	default:
		return strconv.Itoa(s.Min()) + "-" + strconv.Itoa(s.Max())
	}
}

// String renders every verse, comma separated.
func (s Set) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Ints returns a copy of the verse numbers.
func (s Set) Ints() []int {
	return append([]int(nil), s...)
}
