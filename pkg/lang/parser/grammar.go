package parser

import (
	"fmt"
	"strings"

	"regles-hq/calcul/pkg/lang/ast"
	langErrors "regles-hq/calcul/pkg/lang/errors"
	"regles-hq/calcul/pkg/lang/token"
)

// state is the cursor of one recursive-descent pass over a token stream.
type state struct {
	parser *Parser
	file   string
	source string
	tokens []token.Token
	pos    int
	ids    *ast.IDs

	rule  *ast.Rule // rule whose body is being parsed; metadata lands here
	depth int
}

// recordEntry is a key of a record before it is turned into a node.
type recordEntry struct {
	key  string
	span ast.Span
	node ast.Node
}

func (s *state) parseProgram() ([]*ast.Rule, error) {
	var rules []*ast.Rule
	seen := make(map[string]*ast.Rule)

	for !s.done() {
		switch tok := s.peek(); tok.Kind {
		case token.Outdent:
			s.pos++
		case token.Key:
			rule, err := s.parseRule()
			if err != nil {
				return nil, err
			}
			if first, ok := seen[rule.Name]; ok {
				return nil, duplicateRuleError(rule, first, s.source)
			}
			seen[rule.Name] = rule
			rules = append(rules, rule)
		default:
			return nil, s.unexpected()
		}
	}

	return rules, nil
}

func (s *state) parseRule() (*ast.Rule, error) {
	key := s.next()
	rule := &ast.Rule{
		Name:     ast.CanonicalName(key.Value),
		Meta:     make(map[string]string),
		Location: s.location(key.Span.Start),
		Span:     key.Span,
	}
	s.rule = rule
	defer func() { s.rule = nil }()

	// A rule followed by another rule is declared without value
	if s.done() || s.at(token.Key) {
		rule.Value = &ast.Undefined{Base: s.ids.Base(key.Span)}
		return rule, nil
	}

	value, err := s.parseValue(true)
	if err != nil {
		return nil, err
	}
	rule.Value = value
	rule.Span = rule.Span.Join(value.Pos())
	return rule, nil
}

// parseExpression parses the value of a key: a nested block or an inline expression.
func (s *state) parseExpression() (ast.Node, error) {
	return s.parseValue(false)
}

func (s *state) parseValue(ruleLevel bool) (ast.Node, error) {
	if !s.at(token.Indent) {
		return s.parseInline()
	}

	s.pos++ // skip the indent
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	var node ast.Node
	var err error
	if s.at(token.ListItem) {
		node, err = s.parseList()
	} else {
		node, err = s.parseRecord(ruleLevel)
	}
	if err != nil {
		return nil, err
	}

	if s.at(token.Outdent) {
		s.pos++
	}
	return node, nil
}

func (s *state) parseList() (ast.Node, error) {
	start := s.peek().Span
	var items []ast.Node

	for s.at(token.ListItem) {
		s.pos++

		var item ast.Node
		var err error
		if s.at(token.Key) {
			item, err = s.parseRecord(false)
		} else {
			item, err = s.parseExpression()
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	span := start
	if len(items) > 0 {
		span = span.Join(items[len(items)-1].Pos())
	}
	return &ast.List{Base: s.ids.Base(span), Items: items}, nil
}

func (s *state) parseRecord(ruleLevel bool) (ast.Node, error) {
	if !s.at(token.Key) {
		return nil, s.unexpected()
	}

	span := s.peek().Span
	var entries []recordEntry

	for s.at(token.Key) {
		keyTok := s.next()
		key := keyTok.Value
		span = span.Join(keyTok.Span)

		if isTextField(key) {
			if err := s.parseMetadata(key); err != nil {
				return nil, err
			}
			continue
		}

		entry := recordEntry{key: key, span: keyTok.Span}
		if key == token.UnitKey {
			if !s.at(token.Unit) {
				return nil, s.errorf(keyTok.Span.End, "missing unit after %q", key)
			}
			unit := s.next()
			entry.node = &ast.Constant{Base: s.ids.Base(unit.Span), Value: unit.Value}
		} else {
			node, err := s.parseExpression()
			if err != nil {
				return nil, err
			}
			entry.node = node
		}
		span = span.Join(entry.node.Pos())
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		if ruleLevel {
			// Only metadata: the rule awaits a value from the situation
			return &ast.Undefined{Base: s.ids.Base(span)}, nil
		}
		return nil, s.errorf(span.Start, "empty record: only metadata fields were given")
	}

	if !s.done() && !s.at(token.Outdent) && !s.at(token.ListItem) {
		return nil, s.unexpected()
	}

	return s.buildRecord(entries, span)
}

// parseMetadata stores the value of a text field on the current rule.
func (s *state) parseMetadata(key string) error {
	if s.rule == nil {
		return s.unexpected()
	}

	if s.done() {
		s.rule.Meta[key] = ""
		return nil
	}

	switch tok := s.peek(); tok.Kind {
	case token.Text, token.Reference:
		s.rule.Meta[key] = tok.Value
		s.pos++
	case token.Number:
		s.rule.Meta[key] = ast.FormatNumber(tok.Number)
		s.pos++
	case token.Boolean:
		s.rule.Meta[key] = "non"
		if tok.Bool {
			s.rule.Meta[key] = "oui"
		}
		s.pos++
	case token.Key, token.Outdent:
		s.rule.Meta[key] = ""
	case token.Indent:
		// Structured metadata is kept as written
		node, err := s.parseExpression()
		if err != nil {
			return err
		}
		span := node.Pos()
		s.rule.Meta[key] = strings.TrimSpace(s.source[span.Start:span.End])
	default:
		return s.unexpected()
	}
	return nil
}

// parseInline parses an inline expression:
// comparison < additive < multiplicative < parenthesized / terminal.
func (s *state) parseInline() (ast.Node, error) {
	return s.parseComparison()
}

func (s *state) parseComparison() (ast.Node, error) {
	left, err := s.parseAdditive()
	if err != nil {
		return nil, err
	}

	if tok, ok := s.operator("=", "<", ">", "<=", ">="); ok {
		right, err := s.parseAdditive()
		if err != nil {
			return nil, err
		}
		op := tok.Value
		if op == "=" {
			op = ast.OpEq
		}
		return s.binary(op, left, right), nil
	}
	return left, nil
}

func (s *state) parseAdditive() (ast.Node, error) {
	node, err := s.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := s.operator("+", "-")
		if !ok {
			return node, nil
		}
		right, err := s.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		node = s.binary(tok.Value, node, right)
	}
}

func (s *state) parseMultiplicative() (ast.Node, error) {
	node, err := s.parseParenthesized()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := s.operator("*", "/")
		if !ok {
			return node, nil
		}
		right, err := s.parseParenthesized()
		if err != nil {
			return nil, err
		}
		node = s.binary(tok.Value, node, right)
	}
}

func (s *state) parseParenthesized() (ast.Node, error) {
	if !s.at(token.ParenOpen) {
		return s.parseTerminal()
	}

	open := s.next()
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	node, err := s.parseInline()
	if err != nil {
		return nil, err
	}
	if !s.at(token.ParenClose) {
		if s.done() {
			return nil, s.errorf(open.Span.Start, "unclosed parenthesis")
		}
		return nil, s.unexpected()
	}
	s.pos++
	return node, nil
}

func (s *state) parseTerminal() (ast.Node, error) {
	if s.done() {
		return nil, s.errorf(s.endOffset(), "unexpected end of input, expected a value")
	}

	tok := s.next()
	switch tok.Kind {
	case token.Number:
		return s.number(tok, 1), nil
	case token.Reference:
		return &ast.Reference{Base: s.ids.Base(tok.Span), Name: ast.CanonicalName(tok.Value)}, nil
	case token.Text:
		return &ast.Constant{Base: s.ids.Base(tok.Span), Value: tok.Value}, nil
	case token.Boolean:
		return &ast.Constant{Base: s.ids.Base(tok.Span), Value: tok.Bool}, nil
	case token.Operator:
		// Negative literal
		if tok.Value == "-" && s.at(token.Number) {
			return s.number(s.next(), -1), nil
		}
	}

	s.pos--
	return nil, s.unexpected()
}

func (s *state) number(tok token.Token, sign float64) ast.Node {
	span := tok.Span
	unit := ""
	if s.at(token.Unit) {
		u := s.next()
		unit = u.Value
		span = span.Join(u.Span)
	}
	return &ast.Constant{Base: s.ids.Base(span), Value: sign * tok.Number, Unit: unit}
}

func (s *state) binary(op string, left, right ast.Node) ast.Node {
	return &ast.BinaryOp{
		Base:  s.ids.Base(left.Pos().Join(right.Pos())),
		Op:    op,
		Left:  left,
		Right: right,
	}
}

// operator consumes the next token if it is one of the given operators.
func (s *state) operator(ops ...string) (token.Token, bool) {
	if !s.at(token.Operator) {
		return token.Token{}, false
	}
	tok := s.peek()
	for _, op := range ops {
		if tok.Value == op {
			s.pos++
			return tok, true
		}
	}
	return token.Token{}, false
}

func (s *state) enter() error {
	s.depth++
	if s.parser.maxDepth > 0 && s.depth > s.parser.maxDepth {
		return s.errorf(s.offset(), "expression nesting exceeds maximum depth %d", s.parser.maxDepth)
	}
	return nil
}

func (s *state) leave() {
	s.depth--
}

func (s *state) done() bool {
	return s.pos >= len(s.tokens)
}

func (s *state) at(kind token.Kind) bool {
	return !s.done() && s.tokens[s.pos].Kind == kind
}

func (s *state) peek() token.Token {
	return s.tokens[s.pos]
}

func (s *state) next() token.Token {
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}

func (s *state) offset() int {
	if s.done() {
		return s.endOffset()
	}
	return s.tokens[s.pos].Span.Start
}

func (s *state) endOffset() int {
	return len(s.source)
}

func (s *state) location(offset int) ast.Location {
	return ast.LocationOf(s.file, s.source, offset)
}

// unexpected reports the token under the cursor.
func (s *state) unexpected() error {
	if s.done() {
		return s.errorf(s.endOffset(), "unexpected end of input")
	}
	return s.errorf(s.offset(), "unexpected token %s", s.peek())
}

func (s *state) errorf(offset int, format string, args ...any) error {
	err := langErrors.New(langErrors.ErrorTypeSyntax, format, args...).
		At(s.location(offset))
	if s.rule != nil {
		err.InRule(s.rule.Name)
	}
	return langErrors.AddContextToError(err, s.source)
}

// syntaxError reports a problem with a node that has already been built.
func (s *state) syntaxError(span ast.Span, suggestion string, format string, args ...any) error {
	err := langErrors.New(langErrors.ErrorTypeSyntax, format, args...).
		At(s.location(span.Start)).
		WithSuggestion(suggestion)
	if s.rule != nil {
		err.InRule(s.rule.Name)
	}
	return langErrors.AddContextToError(err, s.source)
}

func describe(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Constant:
		return fmt.Sprintf("constant %s", ast.Print(n))
	case *ast.Reference:
		return fmt.Sprintf("reference %s", n.Name)
	default:
		return string(n.Kind())
	}
}
