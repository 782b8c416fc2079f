package extractor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEdit is returned for edits that are out of bounds, out of order,
// or overlapping.
var ErrInvalidEdit = errors.New("invalid rewrite edit")

// Edit replaces text[Start:End] with Replacement. Offsets refer to the
// original text.
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// Rewrite applies edits in one left-to-right pass. Edits must be sorted by
// Start and must not overlap; every byte outside the edited spans is copied
// unchanged.
func Rewrite(text string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	var b strings.Builder
	grow := len(text)
	for _, e := range edits {
		grow += len(e.Replacement) - (e.End - e.Start)
	}
	if grow > 0 {
		b.Grow(grow)
	}
	pos := 0
	for i, e := range edits {
		switch {
		case e.Start < 0 || e.End > len(text) || e.Start > e.End:
			return "", fmt.Errorf("%w: edit %d span [%d,%d) outside text of %d bytes", ErrInvalidEdit, i, e.Start, e.End, len(text))
		case e.Start < pos:
			return "", fmt.Errorf("%w: edit %d starts at %d before previous end %d", ErrInvalidEdit, i, e.Start, pos)
		}
		b.WriteString(text[pos:e.Start])
		b.WriteString(e.Replacement)
		pos = e.End
	}
	b.WriteString(text[pos:])
	return b.String(), nil
}
