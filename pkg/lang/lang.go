package lang

import (
	"regles-hq/calcul/pkg/lang/ast"
	"regles-hq/calcul/pkg/lang/compiler"
	langErrors "regles-hq/calcul/pkg/lang/errors"
	"regles-hq/calcul/pkg/lang/linker"
	"regles-hq/calcul/pkg/lang/parser"
)

// CompileFile is a convenience function that parses, links and compiles a rules file.
func CompileFile(path string) (*compiler.Namespace, error) {
	p := parser.NewParser()
	program, err := p.Parse(path)
	if err != nil {
		return nil, err
	}
	return CompileProgram(program)
}

// CompileFiles parses several rules files as one program and compiles it.
func CompileFiles(paths []string) (*compiler.Namespace, error) {
	p := parser.NewParser()
	program, err := p.ParseMulti(paths)
	if err != nil {
		return nil, err
	}
	return CompileProgram(program)
}

// CompileString parses, links and compiles rules held in memory.
func CompileString(source, sourcePath string) (*compiler.Namespace, error) {
	p := parser.NewParser()
	program, err := p.ParseString(source, sourcePath)
	if err != nil {
		return nil, err
	}
	return CompileProgram(program)
}

// CompileProgram links and compiles a parsed program.
func CompileProgram(program *ast.Program) (*compiler.Namespace, error) {
	linked, err := linker.Link(program)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(linked), nil
}

// Lint checks rules held in memory and returns every problem found.
// Parsing stops at the first lex or syntax error; link errors are accumulated
// across rules. The returned list is empty when the rules compile.
func Lint(source, sourcePath string) *langErrors.ErrorList {
	errs := langErrors.NewErrorList()

	program, err := parser.NewParser().WithStrictMode(true).ParseString(source, sourcePath)
	if err != nil {
		errs.Append(err, langErrors.ErrorTypeSyntax)
		return errs
	}

	_, err = linker.Link(program)
	errs.Append(err, langErrors.ErrorTypeLink)
	return errs
}

// LintFiles checks several rules files, linked together as one program.
func LintFiles(paths []string) *langErrors.ErrorList {
	errs := langErrors.NewErrorList()

	program, err := parser.NewParser().WithStrictMode(true).ParseMulti(paths)
	if err != nil {
		errs.Append(err, langErrors.ErrorTypeSyntax)
		return errs
	}

	_, err = linker.Link(program)
	errs.Append(err, langErrors.ErrorTypeLink)
	return errs
}
