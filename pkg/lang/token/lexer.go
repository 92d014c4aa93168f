package token

import (
	"regexp"
	"strconv"
	"strings"

	"regles-hq/calcul/pkg/lang/ast"
	langErrors "regles-hq/calcul/pkg/lang/errors"
)

var (
	ruleNameRegex  = regexp.MustCompile(`^[\p{L}$](?:(?:[$\p{L} .'0-9]|\S-\S)*[\p{L}$0-9])?`)
	numberRegex    = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?`)
	unitRegex      = regexp.MustCompile(`^[a-z€]+(?:/[a-z€]+)?`)
	operatorRegex  = regexp.MustCompile(`^(?:<=|>=|<|>|=|\+|-|\*|/)`)
	multiLineRegex = regexp.MustCompile(`^ *\| *\n`)
)

// Tokenize converts source text into a token stream. Indentation is turned
// into Indent and Outdent tokens; the stream always contains as many of one
// as of the other.
func Tokenize(source string) ([]Token, error) {
	return TokenizeFile("", source)
}

// TokenizeFile is Tokenize with a file name used in error locations.
func TokenizeFile(file, source string) ([]Token, error) {
	l := &lexer{file: file, source: source}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

type lexer struct {
	file   string
	source string
	cursor int
	tokens []Token

	indent      int   // indentation width of the current level
	indentStack []int // enclosing levels
}

func (l *lexer) run() error {
	lineStart := true
	for l.cursor < len(l.source) {
		if lineStart {
			lineStart = false
			if err := l.startLine(); err != nil {
				return err
			}
			continue
		}

		c := l.source[l.cursor]
		switch {
		case c == '\n':
			l.cursor++
			lineStart = true
			continue
		case c == '#':
			l.skipToEndOfLine()
			continue
		case c == ' ' || c == '\t' || c == '\r':
			l.cursor++
			continue
		case c == '(':
			l.push(Token{Kind: ParenOpen}, l.cursor, l.cursor+1)
			l.cursor++
			continue
		case c == ')':
			l.push(Token{Kind: ParenClose}, l.cursor, l.cursor+1)
			l.cursor++
			continue
		case c == '"' || c == '\'':
			if err := l.quoted(); err != nil {
				return err
			}
			continue
		}

		if op := l.match(operatorRegex); op != "" {
			l.push(Token{Kind: Operator, Value: op}, l.cursor-len(op), l.cursor)
			continue
		}

		if name := l.match(ruleNameRegex); name != "" {
			if err := l.name(name, l.cursor-len(name)); err != nil {
				return err
			}
			continue
		}

		if num := l.match(numberRegex); num != "" {
			l.number(num, l.cursor-len(num))
			continue
		}

		return l.errorf(l.cursor, "unrecognized character %q", l.peekRune())
	}

	// Close every level still open
	for len(l.indentStack) > 0 {
		l.push(Token{Kind: Outdent}, l.cursor, l.cursor)
		l.pop()
	}
	return nil
}

// startLine computes the indentation of a new physical line and emits the
// structural tokens for it. Blank and comment-only lines leave the
// indentation untouched. Indentation is made of spaces only.
func (l *lexer) startLine() error {
	start := l.cursor
	indent := l.skipSpaces()
	if err := l.checkIndentTab(); err != nil {
		return err
	}

	if l.atEndOfLine() {
		return nil
	}

	isListItem := false
	switch l.source[l.cursor] {
	case '#':
		l.skipToEndOfLine()
		return nil
	case '-':
		if next := l.cursor + 1; next == len(l.source) || l.source[next] == ' ' || l.source[next] == '\n' {
			l.cursor++
			indent += 1 + l.skipSpaces()
			if err := l.checkIndentTab(); err != nil {
				return err
			}
			isListItem = true
		}
	}

	if indent > l.indent {
		l.push(Token{Kind: Indent}, start, l.cursor)
		l.indentStack = append(l.indentStack, l.indent)
		l.indent = indent
	}

	for indent < l.indent {
		l.push(Token{Kind: Outdent}, start, start)
		l.pop()
	}

	if isListItem {
		l.push(Token{Kind: ListItem}, l.cursor-1, l.cursor)
	}
	return nil
}

// checkIndentTab rejects a tab in the indentation of a line. A line holding
// only blanks or a comment is skipped.
func (l *lexer) checkIndentTab() error {
	if l.cursor >= len(l.source) || l.source[l.cursor] != '\t' {
		return nil
	}
	tab := l.cursor
	for l.cursor < len(l.source) && (l.source[l.cursor] == ' ' || l.source[l.cursor] == '\t') {
		l.cursor++
	}
	if l.atEndOfLine() || l.source[l.cursor] == '#' {
		l.skipToEndOfLine()
		return nil
	}
	return l.errorf(tab, "tabs are not allowed in indentation")
}

func (l *lexer) pop() {
	if n := len(l.indentStack); n > 0 {
		l.indent = l.indentStack[n-1]
		l.indentStack = l.indentStack[:n-1]
		return
	}
	l.indent = 0
}

// name handles a rule-name match: a key when followed by ':', otherwise a
// boolean or a reference.
func (l *lexer) name(name string, start int) error {
	end := l.cursor
	l.skipSpaces()

	if l.cursor >= len(l.source) || l.source[l.cursor] != ':' {
		switch name {
		case "oui", "non":
			l.push(Token{Kind: Boolean, Bool: name == "oui"}, start, end)
		default:
			l.push(Token{Kind: Reference, Value: name}, start, end)
		}
		return nil
	}

	l.cursor++ // ':'
	l.push(Token{Kind: Key, Value: name}, start, end)

	if marker := l.match(multiLineRegex); marker != "" {
		return l.multiLine(start)
	}

	if name == UnitKey {
		l.skipSpaces()
		unitStart := l.cursor
		unit := l.match(unitRegex)
		if unit == "" {
			return l.errorf(unitStart, "missing unit after %q", UnitKey)
		}
		l.push(Token{Kind: Unit, Value: unit}, unitStart, l.cursor)
		return nil
	}

	if !IsExpressionKey(name) && len(l.indentStack) > 0 {
		l.skipSpaces()
		textStart := l.cursor
		l.skipToEndOfLine()
		text := strings.TrimRight(l.source[textStart:l.cursor], " \t\r")
		if text != "" {
			l.push(Token{Kind: Text, Value: unquote(text)}, textStart, textStart+len(text))
		}
	}
	return nil
}

// number reads a number literal with its optional '%' and unit.
func (l *lexer) number(literal string, start int) {
	value, _ := strconv.ParseFloat(literal, 64) // the regex only admits valid literals
	end := l.cursor

	l.skipSpaces()
	if l.cursor < len(l.source) && l.source[l.cursor] == '%' {
		l.cursor++
		value /= 100
		end = l.cursor
	}
	l.push(Token{Kind: Number, Number: value}, start, end)

	unitStart := l.cursor
	if unit := l.match(unitRegex); unit != "" {
		l.push(Token{Kind: Unit, Value: unit}, unitStart, l.cursor)
	}
}

// quoted reads a quoted string. Both quote styles are accepted, and the
// legacy doubled form "'text'" (or '"text"') is read as the inner string.
func (l *lexer) quoted() error {
	start := l.cursor
	quote := l.source[l.cursor]
	l.cursor++

	legacy := false
	if inverted := invertQuote(quote); l.cursor < len(l.source) && l.source[l.cursor] == inverted {
		legacy = true
		quote = inverted
		l.cursor++
	}

	var sb strings.Builder
	for l.cursor < len(l.source) {
		c := l.source[l.cursor]
		switch {
		case c == '\\' && l.cursor+1 < len(l.source):
			sb.WriteByte(l.source[l.cursor+1])
			l.cursor += 2
			continue
		case c == '\n':
			return l.errorf(start, "unterminated string")
		case c == quote:
			l.cursor++
			if legacy {
				if l.cursor >= len(l.source) || l.source[l.cursor] != invertQuote(quote) {
					return l.errorf(start, "unterminated legacy string")
				}
				l.cursor++
			}
			l.push(Token{Kind: Text, Value: sb.String()}, start, l.cursor)
			return nil
		}
		sb.WriteByte(c)
		l.cursor++
	}
	return l.errorf(start, "unterminated string")
}

// multiLine reads the block of lines following a "key: |" marker. The block
// ends before the first non-blank line indented no deeper than the key.
func (l *lexer) multiLine(keyStart int) error {
	blockStart := l.cursor
	end := len(l.source)

	for pos := blockStart; pos < len(l.source); {
		lineEnd := strings.IndexByte(l.source[pos:], '\n')
		if lineEnd < 0 {
			lineEnd = len(l.source)
		} else {
			lineEnd += pos
		}
		line := l.source[pos:lineEnd]
		trimmed := strings.TrimLeft(line, " ")
		if strings.TrimSpace(trimmed) != "" && len(line)-len(trimmed) <= l.indent {
			// The newline before this line is left to the main loop
			end = max(pos-1, blockStart)
			break
		}
		pos = lineEnd + 1
	}

	lines := strings.Split(l.source[blockStart:end], "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.TrimLeft(line, " "), "\r")
	}
	value := strings.TrimSpace(strings.Join(lines, "\n"))
	if value == "" {
		return l.errorf(keyStart, "unterminated multi-line string")
	}

	l.cursor = end
	l.push(Token{Kind: Text, Value: value}, blockStart, end)
	return nil
}

func (l *lexer) match(re *regexp.Regexp) string {
	m := re.FindString(l.source[l.cursor:])
	l.cursor += len(m)
	return m
}

func (l *lexer) skipSpaces() int {
	n := 0
	for l.cursor < len(l.source) && l.source[l.cursor] == ' ' {
		l.cursor++
		n++
	}
	return n
}

func (l *lexer) skipToEndOfLine() {
	if i := strings.IndexByte(l.source[l.cursor:], '\n'); i >= 0 {
		l.cursor += i
		return
	}
	l.cursor = len(l.source)
}

func (l *lexer) atEndOfLine() bool {
	return l.cursor >= len(l.source) || l.source[l.cursor] == '\n' || l.source[l.cursor] == '\r'
}

func (l *lexer) peekRune() rune {
	for _, r := range l.source[l.cursor:] {
		return r
	}
	return 0
}

func (l *lexer) push(t Token, start, end int) {
	t.Span = ast.Span{Start: start, End: end}
	l.tokens = append(l.tokens, t)
}

func (l *lexer) errorf(offset int, format string, args ...any) error {
	err := langErrors.New(langErrors.ErrorTypeLex, format, args...).
		At(ast.LocationOf(l.file, l.source, offset))
	return langErrors.AddContextToError(err, l.source)
}

func invertQuote(q byte) byte {
	if q == '"' {
		return '\''
	}
	return '"'
}

// unquote strips one pair of matching quotes around free text.
func unquote(text string) string {
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'') && first == last {
			return text[1 : len(text)-1]
		}
	}
	return text
}
