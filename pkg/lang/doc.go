// Package lang compiles the rule language into evaluable closures.
//
// # Architecture
//
// The pipeline is split into subpackages, each consuming the output of the
// previous one:
//
// - token: indentation-sensitive tokenizer
// - parser: syntax tree construction and mechanism signatures
// - linker: reference resolution, type and unit inference
// - compiler: lowering of linked rules into Go closures
// - ast: syntax tree shared by every stage
// - errors: rich errors with location, source context and suggestions
//
// # Basic Usage
//
//	ns, err := lang.CompileFile("rules/impots.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Rules:", len(ns.Rules))
//
// Evaluation with caching and situations is provided by pkg/engine.
//
// # Linting
//
// Lint reports the problems of a source without stopping at the first link
// error, and treats unknown fields inside mechanisms as errors:
//
//	for _, e := range lang.Lint(source, "impots.yaml").Errors {
//	    fmt.Print(e.Error())
//	}
package lang
