// Package ast defines the syntax tree of the rule language.
//
// A Program is an ordered list of Rules. Each rule has a dotted name
// ("contrat . salaire brut"), free-form text metadata and a value expression.
// Expressions are built from a closed set of node types: constants,
// references, infix operations and the mechanisms of the language (barème,
// produit, somme, variations, applicable si, plafond, plancher, par défaut,
// unité, possibilités, toutes ces conditions, une de ces conditions).
//
// # Node identity
//
// Every node gets a stable NodeID when it is built. Later passes keep their
// results (inferred types, rewrites) in side tables keyed by NodeID instead of
// mutating nodes or keying maps by pointer:
//
//	ids := &ast.IDs{}
//	n := &ast.Reference{Base: ids.Base(span), Name: "salaire"}
//	types[n.ID()] = numberType
//
// # Traversal
//
// Children returns the direct sub-expressions of a node and Inspect walks a
// whole tree:
//
//	ast.Inspect(rule.Value, func(n ast.Node) bool {
//	    if ref, ok := n.(*ast.Reference); ok {
//	        fmt.Println("uses", ref.Name)
//	    }
//	    return true
//	})
//
// Print renders any node as a compact s-expression, which is what the lint
// command and the tests use to show trees.
package ast
