package ast

import (
	"fmt"
	"strings"
)

// Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

// IsZero returns true if the span carries no position information.
func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// Join returns the smallest span covering both s and other.
func (s Span) Join(other Span) Span {
	if s.IsZero() {
		return other
	}
	if other.IsZero() {
		return s
	}
	return Span{Start: min(s.Start, other.Start), End: max(s.End, other.End)}
}

// Location represents the source location of a node in the original rules file.
// It enables precise error reporting with file, line, and column information.
type Location struct {
	File   string // Path to the rules file
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
	Offset int    // Byte offset (0-based)
}

// String returns a human-readable representation of the location.
// Format: "file:line:column"
func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<input>"
	}
	if l.Line == 0 {
		return file
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// IsValid returns true if the location has line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}

// LocationOf converts a byte offset in source into a Location.
// Columns count runes, not bytes, so accented rule names point at the right place.
func LocationOf(file, source string, offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(source) {
		offset = len(source)
	}

	before := source[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	column := len([]rune(before[lineStart:])) + 1

	return Location{
		File:   file,
		Line:   line,
		Column: column,
		Offset: offset,
	}
}
