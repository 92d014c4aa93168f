package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"regles-hq/calcul/pkg/journal"
)

// CSVExporter exports entries as CSV rows.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header returns the column names.
func (e *CSVExporter) Header() []string {
	return []string{
		"id", "recorded_at", "rule", "value", "unit", "display",
		"status", "error", "error_type",
		"engine_id", "situation_id", "situation", "traversed", "duration_ms",
	}
}

// Export writes entries to w.
func (e *CSVExporter) Export(ctx context.Context, entries []*journal.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(e.Header()); err != nil {
			return journal.NewExportError("csv", len(entries), err)
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return journal.NewExportError("csv", len(entries), err)
		}
		row, err := e.row(entry)
		if err != nil {
			return journal.NewExportError("csv", len(entries), err)
		}
		if err := writer.Write(row); err != nil {
			return journal.NewExportError("csv", len(entries), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return journal.NewExportError("csv", len(entries), err)
	}
	return nil
}

func (e *CSVExporter) row(entry *journal.Entry) ([]string, error) {
	value, err := formatValue(entry.Value)
	if err != nil {
		return nil, err
	}
	situation := ""
	if len(entry.Situation) > 0 {
		data, err := json.Marshal(entry.Situation)
		if err != nil {
			return nil, err
		}
		situation = string(data)
	}

	return []string{
		entry.ID,
		entry.RecordedAt.UTC().Format(time.RFC3339Nano),
		entry.Rule,
		value,
		entry.Unit,
		entry.Display,
		entry.Status,
		entry.Error,
		entry.ErrorType,
		entry.EngineID,
		entry.SituationID,
		situation,
		strings.Join(entry.Traversed, ";"),
		strconv.FormatFloat(float64(entry.Duration)/float64(time.Millisecond), 'f', -1, 64),
	}, nil
}

// formatValue writes numbers and texts bare, other values as JSON.
func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case string:
		return v, nil
	default:
		data, err := json.Marshal(v)
		return string(data), err
	}
}
