package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	langErrors "regles-hq/calcul/pkg/lang/errors"
)

// Attribute keys use the "calcul.*" namespace.
const (
	// Source attributes
	AttrSource = "calcul.source"
	AttrFiles  = "calcul.source.files"
	AttrBytes  = "calcul.source.bytes"

	// Engine attributes
	AttrLoadID     = "calcul.load_id"
	AttrGeneration = "calcul.generation"
	AttrEngineID   = "calcul.engine_id"
	AttrRules      = "calcul.rules"
	AttrSituation  = "calcul.situation.size"

	// Journal attributes
	AttrDeleted = "calcul.journal.deleted"

	// Error attributes
	AttrErrorType = "calcul.error.type"
)

// SetSourceAttributes records the rules texts read from a source.
func SetSourceAttributes(span trace.Span, source string, files int, bytes int64) {
	span.SetAttributes(
		attribute.String(AttrSource, source),
		attribute.Int(AttrFiles, files),
		attribute.Int64(AttrBytes, bytes),
	)
}

// SetEngineAttributes records the engine installed by a load.
func SetEngineAttributes(span trace.Span, engineID string, generation, rules, situation int) {
	span.SetAttributes(
		attribute.String(AttrEngineID, engineID),
		attribute.Int(AttrGeneration, generation),
		attribute.Int(AttrRules, rules),
		attribute.Int(AttrSituation, situation),
	)
}

// ErrorType returns the kind of a rules error ("syntax", "link", ...), or
// "error" for other errors.
func ErrorType(err error) string {
	if e := langErrors.As(err); e != nil {
		return string(e.Type)
	}
	return "error"
}
