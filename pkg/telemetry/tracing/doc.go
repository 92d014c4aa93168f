// Package tracing provides OpenTelemetry tracing for rule loads.
//
// A Tracer is created from the telemetry.tracing section of the
// configuration. Enabled tracers export spans to an OTLP gRPC collector;
// disabled ones are noops with negligible overhead:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "rules.load")
//	defer func() { tracing.End(span, err) }()
//
// engine.Manager traces every load as a "rules.load" span with "rules.read",
// "rules.parse" and "rules.compile" children. Attribute keys are in the
// "calcul.*" namespace. Spans of failed loads carry the kind of rules error
// under calcul.error.type.
//
// # Sampling
//
// Samplers "always", "never" and "ratio" are wrapped in ParentBased, so a
// child span always follows its parent's decision.
package tracing
