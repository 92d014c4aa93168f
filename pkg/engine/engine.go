package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"regles-hq/calcul/pkg/lang/ast"
	"regles-hq/calcul/pkg/lang/compiler"
	langErrors "regles-hq/calcul/pkg/lang/errors"
	"regles-hq/calcul/pkg/lang/parser"
	"regles-hq/calcul/pkg/telemetry/metrics"
)

// valuesCache names the value cache in metrics.
const valuesCache = "values"

// Engine evaluates the rules of a compiled namespace on demand.
//
// Every rule is computed at most once per cache generation. A situation
// overlays override expressions on the rules; installing one clears the
// cache. An Engine is not safe for concurrent use; Manager serializes access
// to a shared one.
type Engine struct {
	id      string
	ns      *compiler.Namespace
	config  *Config
	logger  *slog.Logger
	metrics *metrics.Collector

	// Memoized values, including nil for undefined rules
	cache map[string]compiler.Value

	// Traversed rules of every computed rule, first-seen order
	deps map[string][]string

	situation   map[string]compiler.Thunk
	overrides   map[string]string
	situationID string

	// Rules being computed, innermost last
	stack      []string
	inProgress map[string]bool
	// Rules referenced by each frame of stack
	frames [][]string

	resolver compiler.Resolver
	trace    *Trace
}

// New creates an engine over a compiled namespace. A nil config uses
// DefaultConfig, a nil logger uses slog.Default() and a nil collector records
// no metrics.
func New(ns *compiler.Namespace, config *Config, logger *slog.Logger, collector *metrics.Collector) (*Engine, error) {
	if ns == nil {
		return nil, fmt.Errorf("namespace cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	e := &Engine{
		id:         id,
		ns:         ns,
		config:     config,
		logger:     logger.With("engine_id", id),
		metrics:    collector,
		cache:      make(map[string]compiler.Value),
		deps:       make(map[string][]string),
		situation:  make(map[string]compiler.Thunk),
		overrides:  make(map[string]string),
		inProgress: make(map[string]bool),
	}
	e.resolver = e.evaluate
	if config.EnableTrace {
		e.trace = &Trace{}
	}

	e.logger.Debug("Engine created",
		"rules", len(ns.Rules),
		"max_depth", config.MaxDepth,
		"trace", config.EnableTrace,
	)
	return e, nil
}

// ID returns the engine instance id used in logs.
func (e *Engine) ID() string {
	return e.id
}

// Namespace returns the compiled rules the engine evaluates.
func (e *Engine) Namespace() *compiler.Namespace {
	return e.ns
}

// Names returns the rule names in source order.
func (e *Engine) Names() []string {
	return e.ns.Names()
}

// Unit returns the unit of the named rule, or "" when it has none.
func (e *Engine) Unit(name string) string {
	return e.ns.Linked().RuleType(name).Unit
}

// Evaluate returns the value of the named rule, computing it and the rules
// it depends on when they are not cached. A nil value means the rule is
// undefined or not applicable.
func (e *Engine) Evaluate(name string) (compiler.Value, error) {
	if _, ok := e.ns.Rule(name); !ok {
		e.metrics.RecordError("not_found")
		return nil, &EvaluationError{Rule: name, Cause: e.notFound(name)}
	}

	v, err := e.evaluate(name)
	if err != nil {
		e.metrics.RecordError(errorType(err))
		e.logger.Debug("Evaluation failed", "rule", name, "error", err)
		return nil, &EvaluationError{Rule: name, Cause: err}
	}
	return v, nil
}

// TraversedRules evaluates the named rule and returns every rule visited
// while computing it, itself first, without duplicates and in first-seen
// order. The list of a rule is built when the rule is computed and reused
// while it stays cached.
func (e *Engine) TraversedRules(name string) ([]string, error) {
	if _, err := e.Evaluate(name); err != nil {
		return nil, err
	}
	return slices.Clone(e.deps[name]), nil
}

// SetSituation replaces the situation with the given overrides, mapping rule
// names to expressions in the rule language. An override may reference any
// rule; a reference to the overridden rule itself reads its definition in
// the rules. The cache is cleared.
//
// Overrides are installed all or nothing: on error the engine is unchanged.
// SetSituation returns the engine for chaining.
func (e *Engine) SetSituation(overrides map[string]string) (*Engine, error) {
	// Overrides are linked into tables of their own, so engines sharing the
	// namespace do not see each other's situations.
	overlay := e.ns.Linked().Overlay()
	normalized := make(map[string]string, len(overrides))
	for name, expr := range overrides {
		normalized[ast.CanonicalName(name)] = expr
	}
	situation := make(map[string]compiler.Thunk, len(normalized))

	for _, name := range slices.Sorted(maps.Keys(normalized)) {
		expr := normalized[name]
		fail := func(err error) (*Engine, error) {
			e.metrics.RecordError(errorType(err))
			return nil, &SituationError{Rule: name, Expression: expr, Cause: err}
		}

		node, err := parser.ParseExpression(expr, overlay.IDs())
		if err != nil {
			return fail(err)
		}
		node, err = overlay.LinkOverride(name, node)
		if err != nil {
			return fail(err)
		}
		situation[name] = overrideThunk(name, e.ns.Rules[name], e.ns.CompileOverride(overlay, name, node))
	}

	e.situation = situation
	e.overrides = normalized
	e.situationID = uuid.NewString()
	e.ResetCache()

	e.metrics.RecordSituation(len(situation))
	e.logger.Info("Situation installed",
		"situation_id", e.situationID,
		"overrides", len(situation),
	)
	return e, nil
}

// overrideThunk evaluates override with references to the overridden rule
// bound to its base definition.
func overrideThunk(name string, base, override compiler.Thunk) compiler.Thunk {
	return func(r compiler.Resolver) (compiler.Value, error) {
		return override(func(ref string) (compiler.Value, error) {
			if ref == name {
				return base(r)
			}
			return r(ref)
		})
	}
}

// Situation returns a copy of the installed overrides.
func (e *Engine) Situation() map[string]string {
	return maps.Clone(e.overrides)
}

// SituationID returns the id of the installed situation, or "" when none was
// installed.
func (e *Engine) SituationID() string {
	return e.situationID
}

// ResetCache clears every cached value and traversal list. The situation is
// kept.
func (e *Engine) ResetCache() {
	clear(e.cache)
	clear(e.deps)
	if e.trace != nil {
		e.trace.Reset()
	}
	e.metrics.RecordCacheReset(valuesCache)
}

// Trace returns the computations recorded since the last cache reset, or nil
// when tracing is disabled.
func (e *Engine) Trace() *Trace {
	return e.trace
}

// evaluate is the resolver handed to compiled rules: nested references are
// memoized and recorded in the frame of the rule being computed.
func (e *Engine) evaluate(name string) (compiler.Value, error) {
	if n := len(e.frames); n > 0 {
		e.frames[n-1] = append(e.frames[n-1], name)
	}

	if v, ok := e.cache[name]; ok {
		e.metrics.RecordCacheHit(valuesCache)
		return v, nil
	}
	e.metrics.RecordCacheMiss(valuesCache)

	if e.inProgress[name] {
		return nil, e.cycleError(name)
	}
	if len(e.stack) >= e.config.MaxDepth {
		return nil, langErrors.New(langErrors.ErrorTypeEval, "maximum evaluation depth %d exceeded", e.config.MaxDepth).
			InRule(name)
	}

	thunk, overridden := e.situation[name]
	if !overridden {
		var ok bool
		if thunk, ok = e.ns.Rule(name); !ok {
			return nil, e.notFound(name)
		}
	}

	entry := e.trace.begin(name, len(e.stack), overridden)
	e.inProgress[name] = true
	e.stack = append(e.stack, name)
	e.frames = append(e.frames, nil)
	start := time.Now()

	v, err := thunk(e.resolver)

	duration := time.Since(start)
	direct := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	e.stack = e.stack[:len(e.stack)-1]
	delete(e.inProgress, name)

	if err != nil {
		e.metrics.RecordEvaluation(name, metrics.StatusError, duration)
		e.trace.fail(entry, err, duration)
		return nil, err
	}

	e.cache[name] = v
	e.deps[name] = e.traversed(name, direct)
	e.metrics.RecordEvaluation(name, metrics.StatusSuccess, duration)
	e.metrics.UpdateCacheSize(valuesCache, len(e.cache))
	e.trace.end(entry, v, e.Unit(name), len(e.deps[name])-1, duration)

	e.logger.Debug("Rule computed",
		"rule", name,
		"overridden", overridden,
		"duration_ms", float64(duration.Microseconds())/1000,
	)
	return v, nil
}

// traversed builds the traversal list of name from the rules it referenced
// directly, each of which is computed and has its own list.
func (e *Engine) traversed(name string, direct []string) []string {
	set := newOrderedSet()
	set.Add(name)
	for _, dep := range direct {
		set.Add(e.deps[dep]...)
	}
	return set.Items()
}

func (e *Engine) cycleError(name string) error {
	start := slices.Index(e.stack, name)
	cycle := append(slices.Clone(e.stack[start:]), name)

	err := langErrors.New(langErrors.ErrorTypeCycle, "cycle detected: %s", strings.Join(cycle, " -> ")).
		InRule(name).
		WithSuggestion("Check the situation: an override must not depend on the rules that use it")
	err.Cycle = cycle
	return err
}

func (e *Engine) notFound(name string) error {
	if suggestion := langErrors.SuggestRuleName(name, e.ns.Names()); suggestion != "" {
		return fmt.Errorf("%w: %q. %s", ErrRuleNotFound, name, suggestion)
	}
	return fmt.Errorf("%w: %q", ErrRuleNotFound, name)
}

// errorType labels an error for metrics.
func errorType(err error) string {
	if errors.Is(err, ErrRuleNotFound) {
		return "not_found"
	}
	if e := langErrors.As(err); e != nil {
		return string(e.Type)
	}
	var list *langErrors.ErrorList
	if errors.As(err, &list) && len(list.Errors) > 0 {
		return string(list.Errors[0].Type)
	}
	return "unknown"
}
