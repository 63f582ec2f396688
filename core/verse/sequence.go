package verse

import (
	"github.com/FocuswithJustin/tafsirseg/core/errors"
)

// ValidateSequence checks that successive citations advance by exactly one
// verse or restate verses already covered. An identical restatement of the
// previous citation is skipped without becoming the new reference point.
//
// The final citation is exempt when it regresses below the previous one: that
// is trailing residue from the next surah and is dropped during segmentation.
// A final citation that moves forward is checked like any other.
func ValidateSequence(seq []Set) error {
	var prev Set
	prevOrdinal := 0

	for i, curr := range seq {
		ordinal := i + 1
		if len(prev) == 0 {
			prev, prevOrdinal = curr, ordinal
			continue
		}
		if curr.Equal(prev) {
			continue
		}
		if ordinal == len(seq) && curr.Min() < prev.Max() {
			return nil
		}
		if prev.Max() > curr.Max() || (!prev.Contains(curr.Min()) && curr.Min() != prev.Max()+1) {
			return &errors.OrderingError{
				PreviousOrdinal: prevOrdinal,
				Previous:        prev.Ints(),
				CurrentOrdinal:  ordinal,
				Current:         curr.Ints(),
			}
		}
		prev, prevOrdinal = curr, ordinal
	}
	return nil
}
