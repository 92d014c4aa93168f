package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"regles-hq/calcul/pkg/lang/compiler"
)

// TraceEntry is one rule computation.
type TraceEntry struct {
	Rule       string
	Depth      int // nesting below the evaluated rule
	Overridden bool
	Value      compiler.Value
	Unit       string
	Deps       int // traversed rules, itself excluded
	Duration   time.Duration
	Err        error
}

// Trace records rule computations in the order they start, so that a rule
// precedes the dependencies it computed. Cache hits are not recorded.
type Trace struct {
	Entries []TraceEntry
}

// Reset drops every entry.
func (t *Trace) Reset() {
	t.Entries = t.Entries[:0]
}

// begin reserves the entry of a computation; it is a no-op on a nil trace.
func (t *Trace) begin(rule string, depth int, overridden bool) int {
	if t == nil {
		return -1
	}
	t.Entries = append(t.Entries, TraceEntry{Rule: rule, Depth: depth, Overridden: overridden})
	return len(t.Entries) - 1
}

func (t *Trace) end(i int, v compiler.Value, unit string, deps int, d time.Duration) {
	if t == nil || i < 0 {
		return
	}
	t.Entries[i].Value = v
	t.Entries[i].Unit = unit
	t.Entries[i].Deps = deps
	t.Entries[i].Duration = d
}

func (t *Trace) fail(i int, err error, d time.Duration) {
	if t == nil || i < 0 {
		return
	}
	t.Entries[i].Err = err
	t.Entries[i].Duration = d
}

// String renders the trace as a table, dependencies indented under the rule
// that computed them.
func (t *Trace) String() string {
	tw := table.NewWriter()
	tw.SetTitle("EVALUATION TRACE")
	tw.AppendHeader(table.Row{"Rule", "Value", "Source", "Deps", "Duration"})

	for _, e := range t.Entries {
		value := FormatValue(e.Value, e.Unit)
		if e.Err != nil {
			value = "error"
		}
		source := "rules"
		if e.Overridden {
			source = "situation"
		}
		tw.AppendRow(table.Row{
			fmt.Sprintf("%s%s", strings.Repeat("  ", e.Depth), e.Rule),
			value,
			source,
			e.Deps,
			e.Duration.Round(time.Microsecond),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}
