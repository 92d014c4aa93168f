package parser

import (
	"sort"

	"regles-hq/calcul/pkg/lang/ast"
	langErrors "regles-hq/calcul/pkg/lang/errors"
)

// Mechanism names.
const (
	MechanismValeur       = "valeur"
	MechanismProduit      = "produit"
	MechanismBareme       = "barème"
	MechanismSomme        = "somme"
	MechanismAll          = "toutes ces conditions"
	MechanismAny          = "une de ces conditions"
	MechanismVariations   = "variations"
	MechanismPossibilites = "possibilités"
	MechanismApplicableSi = "applicable si"
	MechanismPlafond      = "plafond"
	MechanismPlancher     = "plancher"
	MechanismParDefaut    = "par défaut"
	MechanismUnite        = "unité"
)

// mechanismSignatures lists the required fields of mechanisms that take a
// record. Mechanisms absent from this map take a single value or a list.
var mechanismSignatures = map[string][]string{
	MechanismProduit: {"assiette", "taux"},
	MechanismBareme:  {"assiette", "tranches"},
}

var mechanisms = map[string]bool{
	MechanismValeur:       true,
	MechanismProduit:      true,
	MechanismBareme:       true,
	MechanismSomme:        true,
	MechanismAll:          true,
	MechanismAny:          true,
	MechanismVariations:   true,
	MechanismPossibilites: true,
	MechanismApplicableSi: true,
	MechanismPlafond:      true,
	MechanismPlancher:     true,
	MechanismParDefaut:    true,
	MechanismUnite:        true,
}

// chainable mechanisms wrap the node built from the rest of the record.
var chainable = map[string]bool{
	MechanismParDefaut:    true,
	MechanismUnite:        true,
	MechanismApplicableSi: true,
	MechanismPlancher:     true,
	MechanismPlafond:      true,
}

var textFields = map[string]bool{
	ast.MetaDescription: true,
	ast.MetaTitre:       true,
	ast.MetaRemplace:    true,
	ast.MetaLien:        true,
	ast.MetaType:        true,
	ast.MetaQuestion:    true,
	ast.MetaNom:         true,
}

// IsMechanism returns true if key names a mechanism.
func IsMechanism(key string) bool {
	return mechanisms[key]
}

// IsChainable returns true if key names a chainable mechanism.
func IsChainable(key string) bool {
	return chainable[key]
}

// Mechanisms returns the mechanism names in alphabetical order.
func Mechanisms() []string {
	names := make([]string, 0, len(mechanisms))
	for name := range mechanisms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isTextField(key string) bool {
	return textFields[key]
}

// buildRecord turns record entries into a node. A record made only of
// mechanism keys becomes its primary mechanism wrapped by the chainable ones,
// in the order they were written; any other record stays a plain Record.
func (s *state) buildRecord(entries []recordEntry, span ast.Span) (ast.Node, error) {
	for _, e := range entries {
		if !IsMechanism(e.key) {
			return s.plainRecord(entries, span), nil
		}
	}

	var primary *recordEntry
	var wrappers []recordEntry
	for i, e := range entries {
		if IsChainable(e.key) {
			wrappers = append(wrappers, e)
			continue
		}
		if primary != nil {
			return nil, s.syntaxError(e.span, "Split the mechanisms into separate rules",
				"mechanisms %q and %q cannot be used in the same record", primary.key, e.key)
		}
		primary = &entries[i]
	}

	var node ast.Node
	if primary == nil {
		node = &ast.Undefined{Base: s.ids.Base(span)}
	} else {
		var err error
		node, err = s.buildMechanism(*primary, span)
		if err != nil {
			return nil, err
		}
	}

	for _, w := range wrappers {
		node = s.wrap(w, node, span)
	}
	return node, nil
}

func (s *state) plainRecord(entries []recordEntry, span ast.Span) ast.Node {
	record := &ast.Record{Base: s.ids.Base(span)}
	for _, e := range entries {
		record.Entries = append(record.Entries, ast.Entry{Key: e.key, Value: e.node})
	}
	return record
}

func (s *state) wrap(w recordEntry, inner ast.Node, span ast.Span) ast.Node {
	base := s.ids.Base(span)
	switch w.key {
	case MechanismApplicableSi:
		return &ast.ApplicableSi{Base: base, Condition: w.node, Value: inner}
	case MechanismPlafond:
		return &ast.Plafond{Base: base, Bound: w.node, Value: inner}
	case MechanismPlancher:
		return &ast.Plancher{Base: base, Bound: w.node, Value: inner}
	case MechanismParDefaut:
		return &ast.ParDefaut{Base: base, Fallback: w.node, Value: inner}
	default: // unité
		unit, _ := w.node.(*ast.Constant).Value.(string)
		return &ast.UniteAnnotation{Base: base, Unit: unit, Value: inner}
	}
}

func (s *state) buildMechanism(e recordEntry, span ast.Span) (ast.Node, error) {
	base := s.ids.Base(span)

	switch e.key {
	case MechanismValeur:
		return e.node, nil

	case MechanismProduit:
		fields, err := s.fields(e, mechanismSignatures[MechanismProduit], nil)
		if err != nil {
			return nil, err
		}
		return &ast.Produit{Base: base, Assiette: fields["assiette"], Taux: fields["taux"]}, nil

	case MechanismBareme:
		fields, err := s.fields(e, mechanismSignatures[MechanismBareme], nil)
		if err != nil {
			return nil, err
		}
		tranches, err := s.tranches(fields["tranches"])
		if err != nil {
			return nil, err
		}
		return &ast.Bareme{Base: base, Assiette: fields["assiette"], Tranches: tranches}, nil

	case MechanismSomme:
		return &ast.Somme{Base: base, Terms: items(e.node)}, nil

	case MechanismAll:
		return &ast.All{Base: base, Items: items(e.node)}, nil

	case MechanismAny:
		return &ast.Any{Base: base, Items: items(e.node)}, nil

	case MechanismVariations:
		return s.variations(e, base)

	default: // possibilités
		values := make([]string, 0)
		for _, item := range items(e.node) {
			switch v := item.(type) {
			case *ast.Constant:
				text, ok := v.Value.(string)
				if !ok {
					return nil, s.syntaxError(v.Pos(), "Quote the value", "possibilités expects text values, got %s", describe(v))
				}
				values = append(values, text)
			case *ast.Reference:
				values = append(values, v.Name)
			default:
				return nil, s.syntaxError(v.Pos(), "", "possibilités expects text values, got %s", describe(v))
			}
		}
		return &ast.Possibilites{Base: base, Values: values}, nil
	}
}

// fields extracts the fields of a record-valued mechanism.
func (s *state) fields(e recordEntry, required, optional []string) (map[string]ast.Node, error) {
	record, ok := e.node.(*ast.Record)
	if !ok {
		return nil, s.syntaxError(e.node.Pos(), langErrors.SuggestMissingField(required[0], ""),
			"%s expects a record with fields %v, got %s", e.key, required, describe(e.node))
	}

	fields := make(map[string]ast.Node)
	for _, name := range required {
		value := record.Get(name)
		if value == nil {
			return nil, s.syntaxError(record.Pos(), langErrors.SuggestMissingField(name, ""),
				"%s is missing required field %q", e.key, name)
		}
		fields[name] = value
	}
	for _, name := range optional {
		if value := record.Get(name); value != nil {
			fields[name] = value
		}
	}

	if s.parser.strictMode {
		known := append(append([]string(nil), required...), optional...)
		for _, key := range record.Keys() {
			if _, ok := fields[key]; !ok {
				return nil, s.syntaxError(record.Pos(), langErrors.SuggestMechanism(key, known),
					"unknown field %q in %s", key, e.key)
			}
		}
	}
	return fields, nil
}

// tranches reads the bracket list of a barème. Only the last tranche may be
// open-ended, and constant ceilings must be strictly ascending.
func (s *state) tranches(node ast.Node) ([]ast.Tranche, error) {
	list, ok := node.(*ast.List)
	if !ok || len(list.Items) == 0 {
		return nil, s.syntaxError(node.Pos(), "Write each tranche as a list item with taux and plafond",
			"tranches expects a non-empty list, got %s", describe(node))
	}

	tranches := make([]ast.Tranche, 0, len(list.Items))
	for i, item := range list.Items {
		entry := recordEntry{key: "tranche", span: item.Pos(), node: item}
		fields, err := s.fields(entry, []string{"taux"}, []string{"plafond"})
		if err != nil {
			return nil, err
		}

		t := ast.Tranche{Taux: fields["taux"], Plafond: fields["plafond"]}
		if t.Plafond == nil && i != len(list.Items)-1 {
			return nil, s.syntaxError(item.Pos(), langErrors.SuggestMissingField("plafond", ""),
				"only the last tranche may omit its plafond")
		}
		if i > 0 && !ascending(tranches[i-1].Plafond, t.Plafond) {
			return nil, s.syntaxError(item.Pos(), "Order the tranches by increasing plafond",
				"tranche plafonds must be strictly ascending")
		}
		tranches = append(tranches, t)
	}
	return tranches, nil
}

// ascending reports whether two constant ceilings of the same unit are in
// strictly ascending order. Non-constant ceilings are checked at runtime only.
func ascending(prev, next ast.Node) bool {
	a, ok1 := prev.(*ast.Constant)
	b, ok2 := next.(*ast.Constant)
	if !ok1 || !ok2 || a.Unit != b.Unit {
		return true
	}
	x, ok1 := a.Value.(float64)
	y, ok2 := b.Value.(float64)
	if !ok1 || !ok2 {
		return true
	}
	return x < y
}

func (s *state) variations(e recordEntry, base ast.Base) (ast.Node, error) {
	v := &ast.Variations{Base: base}

	list := items(e.node)
	for i, item := range list {
		record, ok := item.(*ast.Record)
		if !ok {
			return nil, s.syntaxError(item.Pos(), "Write each branch as '- si: ...' followed by 'alors: ...'",
				"variations expects si/alors records, got %s", describe(item))
		}

		if sinon := record.Get("sinon"); sinon != nil {
			if i != len(list)-1 {
				return nil, s.syntaxError(record.Pos(), "Move the sinon branch to the end",
					"sinon must be the last branch of variations")
			}
			v.Default = sinon
			continue
		}

		cond, cons := record.Get("si"), record.Get("alors")
		if cond == nil || cons == nil {
			missing := "si"
			if cond != nil {
				missing = "alors"
			}
			return nil, s.syntaxError(record.Pos(), langErrors.SuggestMissingField(missing, ""),
				"variations branch is missing %q", missing)
		}
		v.Branches = append(v.Branches, ast.Branch{Condition: cond, Consequence: cons})
	}

	if len(v.Branches) == 0 {
		return nil, s.syntaxError(e.node.Pos(), "Add at least one si/alors branch",
			"variations needs at least one si/alors branch")
	}
	if v.Default == nil {
		v.Default = &ast.Undefined{Base: s.ids.Base(e.span)}
	}
	return v, nil
}

// items returns the elements of a list, or the node itself as a single item.
func items(n ast.Node) []ast.Node {
	if list, ok := n.(*ast.List); ok {
		return list.Items
	}
	return []ast.Node{n}
}
