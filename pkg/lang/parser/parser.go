package parser

import (
	"fmt"
	"os"

	"regles-hq/calcul/pkg/lang/ast"
	langErrors "regles-hq/calcul/pkg/lang/errors"
	"regles-hq/calcul/pkg/lang/token"
)

// Parser parses rule sources into Programs.
// It handles tokenization, AST construction and mechanism signature checks.
type Parser struct {
	// Configuration
	maxFileSize int64 // Maximum file size in bytes (default: 10MB)
	maxDepth    int   // Maximum expression nesting depth (default: 64)
	strictMode  bool  // Unknown fields inside mechanisms are errors
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024, // 10MB
		maxDepth:    64,
		strictMode:  false,
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum expression nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithStrictMode makes unknown fields inside produit and barème an error
// instead of being ignored.
func (p *Parser) WithStrictMode(strict bool) *Parser {
	p.strictMode = strict
	return p
}

// Parse parses a rules file at the given path.
// It returns an error if the file cannot be read or is not a valid program.
func (p *Parser) Parse(path string) (*ast.Program, error) {
	data, err := p.readFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseBytes(data, path)
}

// ParseBytes parses rules from a byte slice.
// This is useful for testing or parsing rules held in memory.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Program, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &langErrors.Error{
			Type:     langErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}
	return p.ParseString(string(data), sourcePath)
}

// ParseString parses rules from source text.
func (p *Parser) ParseString(source, sourcePath string) (*ast.Program, error) {
	return p.parse(source, sourcePath, &ast.IDs{})
}

// ParseMulti parses several rules files into one Program.
// Rules keep their file order; a rule defined in two files is an error.
func (p *Parser) ParseMulti(paths []string) (*ast.Program, error) {
	if len(paths) == 0 {
		return nil, &langErrors.Error{
			Type:    langErrors.ErrorTypeIO,
			Message: "No rules files provided",
		}
	}

	sources := make([]Source, len(paths))
	for i, path := range paths {
		data, err := p.readFile(path)
		if err != nil {
			return nil, err
		}
		sources[i] = Source{Path: path, Text: string(data)}
	}
	return p.ParseSources(sources)
}

// Source is a named rules text.
type Source struct {
	Path string
	Text string
}

// ParseSources parses several rules texts into one Program, like ParseMulti
// does for files.
func (p *Parser) ParseSources(sources []Source) (*ast.Program, error) {
	if len(sources) == 0 {
		return nil, &langErrors.Error{
			Type:    langErrors.ErrorTypeIO,
			Message: "No rules sources provided",
		}
	}

	ids := &ast.IDs{}
	var program *ast.Program
	seen := make(map[string]*ast.Rule)

	for _, src := range sources {
		if int64(len(src.Text)) > p.maxFileSize {
			return nil, &langErrors.Error{
				Type:     langErrors.ErrorTypeIO,
				Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(src.Text), p.maxFileSize),
				Location: ast.Location{File: src.Path},
			}
		}

		part, err := p.parse(src.Text, src.Path, ids)
		if err != nil {
			return nil, err
		}

		if program == nil {
			program = part
			for _, r := range part.Rules {
				seen[r.Name] = r
			}
			continue
		}

		// Merge additional sources
		for _, r := range part.Rules {
			if first, ok := seen[r.Name]; ok {
				return nil, duplicateRuleError(r, first, part.Source)
			}
			seen[r.Name] = r
			program.Rules = append(program.Rules, r)
		}
		program.Sources[src.Path] = part.Source
	}

	return program, nil
}

func (p *Parser) readFile(path string) ([]byte, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, &langErrors.Error{
			Type:     langErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if fileInfo.Size() > p.maxFileSize {
		return nil, &langErrors.Error{
			Type:     langErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", fileInfo.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &langErrors.Error{
			Type:     langErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	return data, nil
}

func (p *Parser) parse(source, path string, ids *ast.IDs) (*ast.Program, error) {
	tokens, err := token.TokenizeFile(path, source)
	if err != nil {
		return nil, err
	}

	s := &state{
		parser: p,
		file:   path,
		source: source,
		tokens: tokens,
		ids:    ids,
	}
	rules, err := s.parseProgram()
	if err != nil {
		return nil, err
	}

	return &ast.Program{
		File:    path,
		Source:  source,
		Sources: map[string]string{path: source},
		Rules:   rules,
		IDs:     ids,
	}, nil
}

// ParseExpression parses a single inline expression, as written on the right
// of a rule key. It is used for situation overrides; ids must be the
// allocator of the program the expression will be linked against.
func ParseExpression(source string, ids *ast.IDs) (ast.Node, error) {
	tokens, err := token.Tokenize(source)
	if err != nil {
		return nil, err
	}

	s := &state{
		parser: NewParser(),
		source: source,
		tokens: tokens,
		ids:    ids,
	}
	// An indented override is still a single expression
	for s.at(token.Indent) {
		s.pos++
	}
	if s.done() {
		return nil, s.errorf(s.endOffset(), "empty expression")
	}

	node, err := s.parseInline()
	if err != nil {
		return nil, err
	}
	for s.at(token.Outdent) {
		s.pos++
	}
	if !s.done() {
		return nil, s.unexpected()
	}
	return node, nil
}

func duplicateRuleError(dup, first *ast.Rule, source string) error {
	err := langErrors.New(langErrors.ErrorTypeSyntax, "duplicate rule %q, first defined at %s", dup.Name, first.Location).
		InRule(dup.Name).
		At(dup.Location).
		WithSuggestion("Rename or remove one of the definitions")
	return langErrors.AddContextToError(err, source)
}
