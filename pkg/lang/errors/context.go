package errors

import (
	"fmt"
	"strings"

	"regles-hq/calcul/pkg/lang/ast"
)

// ExtractContext extracts the lines surrounding location from source for
// error context display. It returns a formatted string with line numbers and
// a caret under the offending column.
func ExtractContext(source string, location ast.Location, contextLines int) string {
	if !location.IsValid() || source == "" {
		return ""
	}

	lines := strings.Split(source, "\n")

	// Calculate context range
	errorLine := location.Line - 1 // Convert to 0-based index
	if errorLine >= len(lines) {
		return ""
	}
	startLine := max(errorLine-contextLines, 0)
	endLine := min(errorLine+contextLines, len(lines)-1)

	// Build context string
	var sb strings.Builder
	maxLineNumWidth := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		lineNumStr := fmt.Sprintf("%*d", maxLineNumWidth, i+1)
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}

		sb.WriteString(fmt.Sprintf("%s %s | %s\n", prefix, lineNumStr, lines[i]))

		// Add column indicator for error line
		if i == errorLine && location.Column > 0 {
			padding := strings.Repeat(" ", location.Column-1)
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", maxLineNumWidth), padding))
		}
	}

	return sb.String()
}

// WithContext fills the error context from source.
func WithContext(err *Error, source string, contextLines int) *Error {
	if err.Location.IsValid() && err.Context == "" {
		err.Context = ExtractContext(source, err.Location, contextLines)
	}
	return err
}

// AddContextToError adds context to an error from the source it was raised on.
// This is typically called after creating an error to enrich it with source context.
func AddContextToError(err *Error, source string) *Error {
	return WithContext(err, source, 2) // Show 2 lines before and after by default
}
