// Package source holds the original text of one file and answers
// range and position questions about it.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode/utf8"
)

// Buffer wraps the original text of one file. It is immutable.
type Buffer struct {
	name       string
	text       string
	lineStarts []int
}

// NewBuffer indexes text for position lookups.
func NewBuffer(name, text string) *Buffer {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Buffer{name: name, text: text, lineStarts: starts}
}

// Name returns the path or label the buffer was created with.
func (b *Buffer) Name() string {
	return b.name
}

// Text returns the full source.
func (b *Buffer) Text() string {
	return b.text
}

// Bytes returns the full source as bytes for the parser.
func (b *Buffer) Bytes() []byte {
	return []byte(b.text)
}

// Len returns the source length in bytes.
func (b *Buffer) Len() int {
	return len(b.text)
}

// Digest returns the SHA256 of the source.
func (b *Buffer) Digest() string {
	sum := sha256.Sum256([]byte(b.text))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether r lies within the buffer.
func (b *Buffer) Valid(r Range) bool {
	return r.Start >= 0 && r.Start <= r.End && r.End <= len(b.text)
}

// Slice returns the text covered by r, clamped to the buffer.
func (b *Buffer) Slice(r Range) string {
	start, end := b.clamp(r.Start), b.clamp(r.End)
	if end < start {
		return ""
	}
	return b.text[start:end]
}

// LineCount returns the number of lines. A trailing newline does not
// open a new line.
func (b *Buffer) LineCount() int {
	n := len(b.lineStarts)
	if n > 1 && b.lineStarts[n-1] == len(b.text) {
		return n - 1
	}
	return n
}

// Line returns the 1-based line n without its terminator.
func (b *Buffer) Line(n int) string {
	if n < 1 || n > len(b.lineStarts) {
		return ""
	}
	start := b.lineStarts[n-1]
	end := len(b.text)
	if n < len(b.lineStarts) {
		end = b.lineStarts[n] - 1
	}
	return strings.TrimSuffix(b.text[start:end], "\r")
}

// Lines returns every line of the buffer.
func (b *Buffer) Lines() []string {
	lines := make([]string, 0, b.LineCount())
	for i := 1; i <= b.LineCount(); i++ {
		lines = append(lines, b.Line(i))
	}
	return lines
}

// LineOf returns the 1-based line holding offset.
func (b *Buffer) LineOf(offset int) int {
	offset = b.clamp(offset)
	return sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	})
}

// Position converts a byte offset into a 1-based line and character column.
func (b *Buffer) Position(offset int) Point {
	offset = b.clamp(offset)
	line := b.LineOf(offset)
	start := b.lineStarts[line-1]
	return Point{Line: line, Column: utf8.RuneCountInString(b.text[start:offset]) + 1}
}

// Span returns the start and end points of r.
func (b *Buffer) Span(r Range) (Point, Point) {
	return b.Position(r.Start), b.Position(r.End)
}

func (b *Buffer) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(b.text) {
		return len(b.text)
	}
	return offset
}
