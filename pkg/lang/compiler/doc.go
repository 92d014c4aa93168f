// Package compiler lowers a linked program into Go closures.
//
// Every rule becomes a Thunk: a function of a Resolver that returns the value
// of the rule. Each node is lowered once into a closure over the closures of
// its children, and a reference lowers to a call of the resolver, which leaves
// caching, overrides and dependency tracking to the caller.
//
// Values are float64, bool, string, []Value, map[string]Value, or nil for a
// rule that is undefined or not applicable. Arithmetic and comparisons with a
// nil operand yield nil; conditions use three-valued logic.
//
// Helpers used by several rules, such as the barème bracket fold, live in a
// Runtime shared by every thunk of the compilation.
//
//	ns := compiler.Compile(linked)
//	var resolve compiler.Resolver
//	resolve = func(name string) (compiler.Value, error) {
//	    return ns.Rules[name](resolve)
//	}
//	v, err := resolve("impôt")
package compiler
