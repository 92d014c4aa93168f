// Package linker resolves references and infers types and units of a parsed
// program.
//
// Linking runs two passes over every rule:
//
//  1. Name resolution. A reference is looked up from the innermost dotted
//     scope of the rule that contains it outwards, then at global scope. The
//     first match wins; no match is an error that suggests the closest name.
//
//  2. Type inference. Rules are typed on first use, so a rule referenced
//     before its definition is inferred on demand. Re-entering a rule whose
//     inference is in progress is a cycle error. Numbers carry a unit; when
//     two operands of an addition or comparison carry different units, the
//     right one is wrapped in a UnitConversion node using the conversion
//     table. Produit is rewritten into a multiplication.
//
// Types are kept in a side table keyed by node id and never stored on the
// nodes themselves.
//
//	program, _ := parser.NewParser().ParseString(source, "rules.yaml")
//	linked, err := linker.Link(program)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(linked.RuleType("salaire net"))
package linker
