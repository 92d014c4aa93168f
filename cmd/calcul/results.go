package main

import (
	"fmt"
	"strings"
	"time"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/lang/ast"
)

// evalResult is the value of one evaluated rule.
type evalResult struct {
	Rule      string   `json:"rule"`
	Value     any      `json:"value"`
	Unit      string   `json:"unit,omitempty"`
	Display   string   `json:"display"`
	Traversed []string `json:"traversed,omitempty"`

	Duration time.Duration `json:"-"`
}

type evalResults []evalResult

func (r evalResults) Text() string {
	var sb strings.Builder
	for _, res := range r {
		fmt.Fprintf(&sb, "%s = %s\n", res.Rule, res.Display)
		for _, dep := range res.Traversed {
			if dep != res.Rule {
				fmt.Fprintf(&sb, "  %s\n", dep)
			}
		}
	}
	return sb.String()
}

func (r evalResults) Header() []string {
	return []string{"Rule", "Value", "Traversed"}
}

func (r evalResults) Rows() [][]any {
	rows := make([][]any, len(r))
	for i, res := range r {
		rows[i] = []any{res.Rule, res.Display, len(res.Traversed)}
	}
	return rows
}

// evaluateRules evaluates names, or every rule when names is empty. With
// traversed, each result lists the rules it depends on. Results and the
// first failure are recorded in the journal when one is given.
func evaluateRules(m *engine.Manager, names []string, traversed bool, progress cli.ProgressReporter, jw *journalWriter) (evalResults, error) {
	eng := m.Engine()
	if eng == nil {
		return nil, engine.ErrNoRulesLoaded
	}
	if len(names) == 0 {
		names = eng.Names()
	}

	if progress != nil {
		progress.Start(int64(len(names)))
		defer progress.Finish()
	}

	results := make(evalResults, 0, len(names))
	for i, name := range names {
		name = ast.CanonicalName(name)
		start := time.Now()
		v, err := m.Evaluate(name)
		if err != nil {
			jw.record(m, evalResult{Rule: name, Duration: time.Since(start)}, err)
			if progress != nil {
				progress.Error(err)
			}
			return nil, err
		}

		unit := eng.Unit(name)
		result := evalResult{
			Rule:     name,
			Value:    v,
			Unit:     unit,
			Display:  engine.FormatValue(v, unit),
			Duration: time.Since(start),
		}
		if traversed {
			if result.Traversed, err = m.TraversedRules(name); err != nil {
				return nil, err
			}
		}
		results = append(results, result)
		jw.record(m, result, nil)

		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	return results, nil
}
