package linker

import (
	stderrors "errors"
	"strings"

	"regles-hq/calcul/pkg/lang/ast"
	langErrors "regles-hq/calcul/pkg/lang/errors"
)

// errSkipped marks an inference that stopped because a rule it depends on
// already failed. The original failure is reported once, on that rule.
var errSkipped = stderrors.New("dependency failed to link")

// Linked is a program whose references are resolved and whose nodes are typed.
//
// Link rewrites the rule trees in place (produit becomes a multiplication,
// unit conversions are inserted), so a Program must be linked only once.
// Once Link returns, the tables are only read and a Linked may be shared
// between goroutines. Overrides are linked into an Overlay, which owns its
// tables and reads through to the program it extends.
type Linked struct {
	Program  *ast.Program
	Types    map[ast.NodeID]Type   // inferred type of every node linked here
	Resolved map[ast.NodeID]string // rule targeted by each Reference linked here

	rules map[string]*ast.Rule
	base  *Linked  // program extended by an overlay, nil otherwise
	ids   *ast.IDs // allocator of an overlay
}

// Overlay returns an empty layer over l for linking overrides. Its node ids
// follow those of the program, and nothing linked into it is visible from l.
// An overlay is not safe for concurrent use.
func (l *Linked) Overlay() *Linked {
	return &Linked{
		Program:  l.Program,
		Types:    make(map[ast.NodeID]Type),
		Resolved: make(map[ast.NodeID]string),
		rules:    l.rules,
		base:     l,
		ids:      l.IDs().Fork(),
	}
}

// IDs returns the allocator for nodes created in this layer.
func (l *Linked) IDs() *ast.IDs {
	if l.ids != nil {
		return l.ids
	}
	return l.Program.IDs
}

// lookup returns the type of the node id, searching the layers from l down.
func (l *Linked) lookup(id ast.NodeID) (Type, bool) {
	for layer := l; layer != nil; layer = layer.base {
		if t, ok := layer.Types[id]; ok {
			return t, true
		}
	}
	return Undefined, false
}

// Rule returns the rule with the given name, or nil.
func (l *Linked) Rule(name string) *ast.Rule {
	return l.rules[name]
}

// Names returns the rule names in source order.
func (l *Linked) Names() []string {
	return l.Program.Names()
}

// TypeOf returns the inferred type of n.
func (l *Linked) TypeOf(n ast.Node) Type {
	if n == nil {
		return Undefined
	}
	t, _ := l.lookup(n.ID())
	return t
}

// RuleType returns the inferred type of the named rule.
func (l *Linked) RuleType(name string) Type {
	r := l.rules[name]
	if r == nil {
		return Undefined
	}
	return l.TypeOf(r.Value)
}

// Target returns the full name of the rule a reference points to.
func (l *Linked) Target(ref *ast.Reference) string {
	for layer := l; layer != nil; layer = layer.base {
		if name, ok := layer.Resolved[ref.ID()]; ok {
			return name
		}
	}
	return ref.Name
}

// Link resolves every reference of the program and infers the type of every
// node. Errors are accumulated across rules: a single failure is returned as
// an *errors.Error, several as an *errors.ErrorList.
func Link(program *ast.Program) (*Linked, error) {
	if program.IDs == nil {
		program.IDs = &ast.IDs{}
	}

	linked := &Linked{
		Program:  program,
		Types:    make(map[ast.NodeID]Type),
		Resolved: make(map[ast.NodeID]string),
		rules:    make(map[string]*ast.Rule, len(program.Rules)),
	}
	for _, r := range program.Rules {
		linked.rules[r.Name] = r
	}

	l := newLinker(linked)

	// Pass A: name resolution. Rules with unresolved references are not
	// inferred, but the others still are so that every problem is reported.
	for _, r := range program.Rules {
		l.rule = r
		before := l.errors.Count()
		l.resolve(r.Name, r.Value)
		if l.errors.Count() > before {
			l.failed[r.Name] = true
		}
	}
	l.rule = nil

	// Pass B: type and unit inference
	for _, r := range program.Rules {
		_, _ = l.ruleType(r.Name, nil)
	}
	if l.errors.HasErrors() {
		return nil, l.result()
	}

	return linked, nil
}

// LinkOverride links an expression that replaces the value of the named rule.
// References are resolved from the scope of that rule, and the result is
// converted to the rule's unit when both carry one. The types and references
// of the expression are recorded in l, which should be an Overlay so that
// the program tables stay unchanged. expr must be parsed with l.IDs().
func (l *Linked) LinkOverride(name string, expr ast.Node) (ast.Node, error) {
	rule := l.rules[name]
	if rule == nil {
		return nil, langErrors.New(langErrors.ErrorTypeLink, "cannot override unknown rule %q", name).
			WithSuggestion(langErrors.SuggestRuleName(name, l.Names()))
	}

	lk := newLinker(l)
	lk.rule = rule
	lk.detached = true

	lk.resolve(name, expr)
	if lk.errors.HasErrors() {
		return nil, lk.result()
	}

	node, t, err := lk.infer(expr)
	if err != nil {
		return nil, err
	}

	want := l.TypeOf(rule.Value)
	if !want.Compatible(t) {
		return nil, lk.errorAt(nil, "override of %q has type %s, the rule has type %s", name, t, want)
	}
	if want.IsNumber() {
		node, _, err = lk.coerce(node, t, want.Unit)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// linker holds the state of one linking run.
type linker struct {
	linked *Linked
	errors *langErrors.ErrorList

	done       map[string]bool
	failed     map[string]bool
	inProgress map[string]bool
	stack      []string

	rule     *ast.Rule // rule whose value is being linked
	detached bool      // linking an expression that has no place in the sources
}

func newLinker(linked *Linked) *linker {
	l := &linker{
		linked:     linked,
		errors:     langErrors.NewErrorList(),
		done:       make(map[string]bool),
		failed:     make(map[string]bool),
		inProgress: make(map[string]bool),
	}
	// Rules typed by a previous run are final
	for name, r := range linked.rules {
		if _, ok := linked.lookup(r.Value.ID()); ok {
			l.done[name] = true
		}
	}
	return l
}

// resolve records the target of every reference under n. A reference r seen
// from rule "a . b" is looked up as "a . b . r", then "a . r", then "r".
func (l *linker) resolve(scope string, n ast.Node) {
	ast.Inspect(n, func(node ast.Node) bool {
		ref, ok := node.(*ast.Reference)
		if !ok {
			return true
		}
		target, ok := l.lookup(scope, ref.Name)
		if !ok {
			l.errors.Add(l.errorAt(ref, "unknown reference %q", ref.Name).
				WithSuggestion(langErrors.SuggestRuleName(ref.Name, l.linked.Names())))
			return true
		}
		l.linked.Resolved[ref.ID()] = target
		return true
	})
}

func (l *linker) lookup(scope, name string) (string, bool) {
	for _, prefix := range ast.Scopes(scope) {
		candidate := prefix + ast.NameSeparator + name
		if _, ok := l.linked.rules[candidate]; ok {
			return candidate, true
		}
	}
	if _, ok := l.linked.rules[name]; ok {
		return name, true
	}
	return "", false
}

// ruleType infers the named rule on first use. at is the reference that
// triggered the inference, used to locate cycle errors.
func (l *linker) ruleType(name string, at ast.Node) (Type, error) {
	rule := l.linked.rules[name]
	switch {
	case l.done[name]:
		return l.linked.TypeOf(rule.Value), nil
	case l.failed[name]:
		return Undefined, errSkipped
	case l.inProgress[name]:
		return Undefined, l.cycleError(name, at)
	}

	prev := l.rule
	l.rule = rule
	l.inProgress[name] = true
	l.stack = append(l.stack, name)
	defer func() {
		l.rule = prev
		delete(l.inProgress, name)
		l.stack = l.stack[:len(l.stack)-1]
	}()

	value, t, err := l.infer(rule.Value)
	if err != nil {
		if err != errSkipped {
			l.errors.Append(err, langErrors.ErrorTypeLink)
		}
		l.failed[name] = true
		return Undefined, errSkipped
	}

	rule.Value = value
	l.done[name] = true
	return t, nil
}

func (l *linker) cycleError(name string, at ast.Node) error {
	start := 0
	for i, n := range l.stack {
		if n == name {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), l.stack[start:]...), name)

	err := l.errorAt(at, "cycle detected: %s", strings.Join(cycle, " -> ")).
		WithSuggestion("Remove one of the references so that no rule depends on itself")
	err.Type = langErrors.ErrorTypeCycle
	err.Cycle = cycle
	return err
}

// infer types n and records the type of the node that replaces it.
func (l *linker) infer(n ast.Node) (ast.Node, Type, error) {
	node, t, err := l.inferNode(n)
	if err != nil {
		return nil, Undefined, err
	}
	l.linked.Types[node.ID()] = t
	return node, t, nil
}

func (l *linker) inferNode(n ast.Node) (ast.Node, Type, error) {
	switch n := n.(type) {
	case *ast.Constant:
		switch n.Value.(type) {
		case bool:
			return n, Boolean, nil
		case string:
			return n, String, nil
		default:
			return n, Number(n.Unit), nil
		}

	case *ast.Undefined:
		return n, Undefined, nil

	case *ast.Reference:
		t, err := l.ruleType(l.linked.Target(n), n)
		return n, t, err

	case *ast.BinaryOp:
		return l.inferBinary(n)

	case *ast.Produit:
		mul := &ast.BinaryOp{
			Base:  l.linked.IDs().Base(n.Pos()),
			Op:    ast.OpMul,
			Left:  n.Assiette,
			Right: n.Taux,
		}
		return l.inferBinary(mul)

	case *ast.Bareme:
		return l.inferBareme(n)

	case *ast.UnitConversion:
		value, _, err := l.infer(n.Value)
		if err != nil {
			return nil, Undefined, err
		}
		n.Value = value
		return n, Number(n.To), nil

	case *ast.All:
		if err := l.inferAll(n.Items); err != nil {
			return nil, Undefined, err
		}
		return n, Boolean, nil

	case *ast.Any:
		if err := l.inferAll(n.Items); err != nil {
			return nil, Undefined, err
		}
		return n, Boolean, nil

	case *ast.Variations:
		return l.inferVariations(n)

	case *ast.ApplicableSi:
		cond, _, err := l.infer(n.Condition)
		if err != nil {
			return nil, Undefined, err
		}
		value, t, err := l.infer(n.Value)
		if err != nil {
			return nil, Undefined, err
		}
		n.Condition, n.Value = cond, value
		return n, t, nil

	case *ast.Plafond:
		bound, value, t, err := l.inferBounded(n.Bound, n.Value)
		if err != nil {
			return nil, Undefined, err
		}
		n.Bound, n.Value = bound, value
		return n, t, nil

	case *ast.Plancher:
		bound, value, t, err := l.inferBounded(n.Bound, n.Value)
		if err != nil {
			return nil, Undefined, err
		}
		n.Bound, n.Value = bound, value
		return n, t, nil

	case *ast.ParDefaut:
		fallback, value, t, err := l.inferBounded(n.Fallback, n.Value)
		if err != nil {
			return nil, Undefined, err
		}
		n.Fallback, n.Value = fallback, value
		return n, t, nil

	case *ast.Somme:
		return l.inferSomme(n)

	case *ast.UniteAnnotation:
		value, t, err := l.infer(n.Value)
		if err != nil {
			return nil, Undefined, err
		}
		if !t.IsUndefined() && !t.IsNumber() {
			return nil, Undefined, l.errorAt(n, "unité %s applies to numbers, got %s", n.Unit, t)
		}
		value, _, err = l.coerce(value, t, n.Unit)
		if err != nil {
			return nil, Undefined, err
		}
		n.Value = value
		return n, Number(n.Unit), nil

	case *ast.Possibilites:
		return n, String, nil

	case *ast.Record:
		for i := range n.Entries {
			value, _, err := l.infer(n.Entries[i].Value)
			if err != nil {
				return nil, Undefined, err
			}
			n.Entries[i].Value = value
		}
		return n, Undefined, nil

	case *ast.List:
		if err := l.inferAll(n.Items); err != nil {
			return nil, Undefined, err
		}
		return n, Undefined, nil
	}

	return nil, Undefined, l.errorAt(n, "cannot link %s node", n.Kind())
}

func (l *linker) inferAll(nodes []ast.Node) error {
	for i, item := range nodes {
		node, _, err := l.infer(item)
		if err != nil {
			return err
		}
		nodes[i] = node
	}
	return nil
}

func (l *linker) inferBinary(n *ast.BinaryOp) (ast.Node, Type, error) {
	left, lt, err := l.infer(n.Left)
	if err != nil {
		return nil, Undefined, err
	}
	right, rt, err := l.infer(n.Right)
	if err != nil {
		return nil, Undefined, err
	}
	n.Left, n.Right = left, right

	if ast.IsComparison(n.Op) {
		if !lt.Compatible(rt) {
			return nil, Undefined, l.errorAt(n, "cannot compare %s with %s", lt, rt)
		}
		if lt.IsNumber() {
			if n.Right, _, err = l.coerce(n.Right, rt, lt.Unit); err != nil {
				return nil, Undefined, err
			}
		}
		return n, Boolean, nil
	}

	for _, t := range []Type{lt, rt} {
		if !t.IsUndefined() && !t.IsNumber() {
			return nil, Undefined, l.errorAt(n, "operator %s expects numbers, got %s", n.Op, t)
		}
	}

	switch {
	case lt.IsUndefined() && rt.IsUndefined():
		return n, Undefined, nil
	case lt.IsUndefined():
		if n.Op == ast.OpDiv {
			return n, Undefined, nil
		}
		return n, rt, nil
	case rt.IsUndefined():
		return n, lt, nil
	}

	if n.Op == ast.OpMul || n.Op == ast.OpDiv {
		unit, err := InferUnit(n.Op, lt.Unit, rt.Unit)
		if err != nil {
			return nil, Undefined, l.errorAt(n, "%v", err)
		}
		return n, Number(unit), nil
	}

	// + and -: the right operand is expressed in the unit of the left one
	if n.Right, rt, err = l.coerce(n.Right, rt, lt.Unit); err != nil {
		return nil, Undefined, err
	}
	if lt.Unit == "" {
		return n, rt, nil
	}
	return n, lt, nil
}

func (l *linker) inferBareme(n *ast.Bareme) (ast.Node, Type, error) {
	assiette, at, err := l.infer(n.Assiette)
	if err != nil {
		return nil, Undefined, err
	}
	if !at.IsUndefined() && !at.IsNumber() {
		return nil, Undefined, l.errorAt(n.Assiette, "barème assiette must be a number, got %s", at)
	}
	n.Assiette = assiette

	for i := range n.Tranches {
		tranche := &n.Tranches[i]
		taux, _, err := l.infer(tranche.Taux)
		if err != nil {
			return nil, Undefined, err
		}
		tranche.Taux = taux

		if tranche.Plafond == nil {
			continue
		}
		plafond, pt, err := l.infer(tranche.Plafond)
		if err != nil {
			return nil, Undefined, err
		}
		if tranche.Plafond, _, err = l.coerce(plafond, pt, at.Unit); err != nil {
			return nil, Undefined, err
		}
	}

	return n, Number(at.Unit), nil
}

func (l *linker) inferVariations(n *ast.Variations) (ast.Node, Type, error) {
	result := Undefined
	for i := range n.Branches {
		b := &n.Branches[i]
		cond, _, err := l.infer(b.Condition)
		if err != nil {
			return nil, Undefined, err
		}
		cons, ct, err := l.infer(b.Consequence)
		if err != nil {
			return nil, Undefined, err
		}
		b.Condition, b.Consequence = cond, cons
		if result.IsUndefined() {
			result = ct
		}
	}

	def, dt, err := l.infer(n.Default)
	if err != nil {
		return nil, Undefined, err
	}
	n.Default = def
	if result.IsUndefined() {
		result = dt
	}

	if result.IsNumber() {
		for i := range n.Branches {
			b := &n.Branches[i]
			if b.Consequence, _, err = l.coerce(b.Consequence, l.linked.TypeOf(b.Consequence), result.Unit); err != nil {
				return nil, Undefined, err
			}
		}
		if n.Default, _, err = l.coerce(n.Default, dt, result.Unit); err != nil {
			return nil, Undefined, err
		}
	}
	return n, result, nil
}

func (l *linker) inferSomme(n *ast.Somme) (ast.Node, Type, error) {
	result := Undefined
	for i, term := range n.Terms {
		node, t, err := l.infer(term)
		if err != nil {
			return nil, Undefined, err
		}
		if !t.IsUndefined() && !t.IsNumber() {
			return nil, Undefined, l.errorAt(term, "somme expects numbers, got %s", t)
		}
		n.Terms[i] = node
		if result.IsUndefined() {
			result = t
		}
	}

	for i, term := range n.Terms {
		var err error
		if n.Terms[i], _, err = l.coerce(term, l.linked.TypeOf(term), result.Unit); err != nil {
			return nil, Undefined, err
		}
	}
	return n, result, nil
}

// inferBounded types a wrapper whose extra operand (a bound or a fallback) is
// expressed in the unit of the wrapped value. The wrapper takes the type of the
// value, or of the operand while the value is undefined.
func (l *linker) inferBounded(operand, value ast.Node) (ast.Node, ast.Node, Type, error) {
	operand, ot, err := l.infer(operand)
	if err != nil {
		return nil, nil, Undefined, err
	}
	value, vt, err := l.infer(value)
	if err != nil {
		return nil, nil, Undefined, err
	}

	if vt.IsUndefined() {
		return operand, value, ot, nil
	}
	if vt.IsNumber() {
		if operand, _, err = l.coerce(operand, ot, vt.Unit); err != nil {
			return nil, nil, Undefined, err
		}
	}
	return operand, value, vt, nil
}

// coerce wraps node in a UnitConversion when it carries a unit other than
// unit. Dimensionless numbers and non-numbers are returned unchanged.
func (l *linker) coerce(node ast.Node, t Type, unit string) (ast.Node, Type, error) {
	if !t.IsNumber() || t.Unit == "" || unit == "" || t.Unit == unit {
		return node, t, nil
	}

	factor, ok := ConversionFactor(unit, t.Unit)
	if !ok {
		return nil, Undefined, l.errorAt(node, "cannot convert %s to %s", t.Unit, unit).
			WithSuggestion(langErrors.SuggestConversion(KnownConversions()))
	}

	conv := &ast.UnitConversion{
		Base:   l.linked.IDs().Base(node.Pos()),
		Factor: factor,
		From:   t.Unit,
		To:     unit,
		Value:  node,
	}
	converted := Number(unit)
	l.linked.Types[conv.ID()] = converted
	return conv, converted, nil
}

// errorAt builds a link error located at n in the current rule.
func (l *linker) errorAt(n ast.Node, format string, args ...any) *langErrors.Error {
	err := langErrors.New(langErrors.ErrorTypeLink, format, args...)
	if l.rule == nil {
		return err
	}
	err.InRule(l.rule.Name)
	if l.detached {
		return err
	}

	file := l.rule.Location.File
	source := l.linked.Program.SourceOf(file)
	if n == nil || source == "" {
		return err.At(l.rule.Location)
	}
	err.At(ast.LocationOf(file, source, n.Pos().Start))
	return langErrors.AddContextToError(err, source)
}

// result returns the accumulated errors.
func (l *linker) result() error {
	if l.errors.Count() == 1 {
		return l.errors.Errors[0]
	}
	return l.errors.ToError()
}
