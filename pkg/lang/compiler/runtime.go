package compiler

import (
	"math"
	"sort"
)

// Names of the shared helpers a compilation may emit.
const (
	HelperBareme  = "barème"
	HelperConvert = "conversion"
)

// Bracket is one evaluated tranche of a barème.
type Bracket struct {
	Rate    float64
	Ceiling float64 // +Inf for the open-ended last tranche
}

// Runtime holds the helpers shared by every thunk of a compilation. Each
// helper is created once and captured by reference by the thunks that need it.
//
// The set of emitted helpers is fixed when Compile returns: overrides
// lowered later reuse the helpers without recording them, so a Runtime is
// only read once sealed.
type Runtime struct {
	emitted map[string]bool
	sealed  bool

	bareme  func(base float64, brackets []Bracket) float64
	convert func(value, factor float64) float64
}

// NewRuntime creates the helper set of one compilation.
func NewRuntime() *Runtime {
	return &Runtime{
		emitted: make(map[string]bool),
		bareme:  EvalBareme,
		convert: func(value, factor float64) float64 { return value * factor },
	}
}

// Bareme returns the shared bracket fold.
func (rt *Runtime) Bareme() func(base float64, brackets []Bracket) float64 {
	rt.emit(HelperBareme)
	return rt.bareme
}

// Convert returns the shared unit conversion.
func (rt *Runtime) Convert() func(value, factor float64) float64 {
	rt.emit(HelperConvert)
	return rt.convert
}

func (rt *Runtime) emit(name string) {
	if !rt.sealed {
		rt.emitted[name] = true
	}
}

// Seal fixes the set of emitted helpers.
func (rt *Runtime) Seal() {
	rt.sealed = true
}

// Helpers returns the names of the emitted helpers, sorted.
func (rt *Runtime) Helpers() []string {
	names := make([]string, 0, len(rt.emitted))
	for name := range rt.emitted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EvalBareme applies a progressive schedule to base: each bracket taxes the
// slice of base between the previous ceiling (0 for the first) and its own.
func EvalBareme(base float64, brackets []Bracket) float64 {
	total, previous := 0.0, 0.0
	for _, b := range brackets {
		total += b.Rate * math.Max(math.Min(base, b.Ceiling)-previous, 0)
		previous = b.Ceiling
	}
	return total
}
