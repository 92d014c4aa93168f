package compiler

import (
	"regles-hq/calcul/pkg/lang/ast"
	"regles-hq/calcul/pkg/lang/linker"
)

// Value is the result of evaluating a rule: float64, bool, string,
// []Value, map[string]Value, or nil when the rule is undefined or not
// applicable.
type Value = any

// Resolver returns the value of the named rule.
type Resolver func(name string) (Value, error)

// Thunk computes the value of a rule, asking r for the rules it references.
type Thunk func(r Resolver) (Value, error)

// Namespace is the compiled form of a linked program.
type Namespace struct {
	Rules map[string]Thunk

	linked  *linker.Linked
	runtime *Runtime
}

// Compile lowers every rule of a linked program into a Thunk. Compilation
// cannot fail: all checks happen while linking.
func Compile(linked *linker.Linked) *Namespace {
	ns := &Namespace{
		Rules:   make(map[string]Thunk, len(linked.Program.Rules)),
		linked:  linked,
		runtime: NewRuntime(),
	}

	for _, r := range linked.Program.Rules {
		c := &compiler{linked: linked, runtime: ns.runtime, rule: r}
		ns.Rules[r.Name] = c.lower(r.Value)
	}
	ns.runtime.Seal()
	return ns
}

// Rule returns the thunk of the named rule.
func (ns *Namespace) Rule(name string) (Thunk, bool) {
	thunk, ok := ns.Rules[name]
	return thunk, ok
}

// Names returns the rule names in source order.
func (ns *Namespace) Names() []string {
	return ns.linked.Names()
}

// Linked returns the program the namespace was compiled from.
func (ns *Namespace) Linked() *linker.Linked {
	return ns.linked
}

// Helpers returns the names of the shared helpers emitted by the compilation.
func (ns *Namespace) Helpers() []string {
	return ns.runtime.Helpers()
}

// CompileOverride lowers an expression linked into overlay with
// LinkOverride as the new value of the named rule. The thunk uses the
// namespace helpers. The namespace is not modified, so engines sharing it
// may compile overrides concurrently, each into its own overlay.
func (ns *Namespace) CompileOverride(overlay *linker.Linked, name string, node ast.Node) Thunk {
	c := &compiler{linked: overlay, runtime: ns.runtime, rule: ns.linked.Rule(name), detached: true}
	return c.lower(node)
}
