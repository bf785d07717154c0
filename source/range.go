package source

import "fmt"

// Range is a half-open interval [Start, End) of byte offsets into a buffer.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewRange builds a range, swapping the bounds if they are reversed.
func NewRange(start, end int) Range {
	if end < start {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range covers no bytes.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Overlaps reports whether the two ranges share at least one byte.
// Touching ranges ([a,b) and [b,c)) do not overlap. A zero-width range
// overlaps a range that strictly surrounds its offset, and another
// zero-width range at the same offset.
func (r Range) Overlaps(other Range) bool {
	if r.Empty() && other.Empty() {
		return r.Start == other.Start
	}
	return r.Start < other.End && other.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Point is a 1-based line and column. Columns count characters, not bytes.
type Point struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
