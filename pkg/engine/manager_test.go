package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/engine/source"
	"regles-hq/calcul/pkg/lang/parser"
	"regles-hq/calcul/pkg/telemetry/metrics"
	"regles-hq/calcul/pkg/telemetry/tracing"
)

func newManager(t *testing.T, src engine.RuleSource, collector *metrics.Collector) *engine.Manager {
	t.Helper()
	m, err := engine.NewManager(src, nil, nil, collector)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func evaluate(t *testing.T, m *engine.Manager, name string) any {
	t.Helper()
	v, err := m.Evaluate(name)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", name, err)
	}
	return v
}

func TestNewManager(t *testing.T) {
	if _, err := engine.NewManager(nil, nil, nil, nil); err == nil {
		t.Error("expected error for nil source")
	}

	cfg := engine.DefaultManagerConfig()
	cfg.Engine.MaxDepth = 0
	if _, err := engine.NewManager(source.NewMemorySource(), cfg, nil, nil); !errors.Is(err, engine.ErrInvalidConfig) {
		t.Errorf("NewManager() error = %v, want ErrInvalidConfig", err)
	}
}

func TestManager_Load(t *testing.T) {
	src := source.NewMemorySource(
		parser.Source{Path: "salaire.rules", Text: "salaire: 2000 €/mois"},
		parser.Source{Path: "net.rules", Text: "net: salaire * 78%"},
	)
	m := newManager(t, src, nil)

	if _, err := m.Evaluate("net"); !errors.Is(err, engine.ErrNoRulesLoaded) {
		t.Fatalf("Evaluate() before Load error = %v, want ErrNoRulesLoaded", err)
	}
	if m.Engine() != nil {
		t.Error("Engine() should be nil before Load")
	}

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := evaluate(t, m, "net"); got != 1560.0 {
		t.Errorf("Evaluate(net) = %v, want 1560", got)
	}
	if m.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", m.Generation())
	}
	if loadedAt, err := m.LastLoad(); loadedAt.IsZero() || err != nil {
		t.Errorf("LastLoad() = %v, %v", loadedAt, err)
	}

	traversed, err := m.TraversedRules("net")
	if err != nil || len(traversed) != 2 {
		t.Errorf("TraversedRules(net) = %v, %v", traversed, err)
	}
}

func TestManager_LoadFailureKeepsEngine(t *testing.T) {
	src := source.NewMemorySource(parser.Source{Path: "a.rules", Text: "a: 1"})
	m := newManager(t, src, nil)
	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := m.Engine()

	src.Set("a.rules", "a: b")
	err := m.Load(context.Background())
	var reloadErr *engine.ReloadError
	if !errors.As(err, &reloadErr) {
		t.Fatalf("Load() error = %v, want *ReloadError", err)
	}
	if reloadErr.Source != "memory" {
		t.Errorf("Source = %q", reloadErr.Source)
	}

	if m.Engine() != before {
		t.Error("failed load replaced the engine")
	}
	if got := evaluate(t, m, "a"); got != 1.0 {
		t.Errorf("Evaluate(a) = %v, want 1", got)
	}
	if _, lastErr := m.LastLoad(); lastErr == nil {
		t.Error("LastLoad() should report the failure")
	}
}

func TestManager_SituationSurvivesReload(t *testing.T) {
	src := source.NewMemorySource(parser.Source{Path: "a.rules", Text: "a: 1\nb: a + 1"})
	m := newManager(t, src, nil)
	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := m.SetSituation(map[string]string{"a": "10"}); err != nil {
		t.Fatalf("SetSituation() failed: %v", err)
	}
	if got := evaluate(t, m, "b"); got != 11.0 {
		t.Errorf("Evaluate(b) = %v, want 11", got)
	}

	src.Set("a.rules", "a: 1\nb: a + 2")
	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := evaluate(t, m, "b"); got != 12.0 {
		t.Errorf("Evaluate(b) after reload = %v, want 12", got)
	}

	// A reload that no longer defines an overridden rule is rejected
	src.Set("a.rules", "b: 2")
	if err := m.Load(context.Background()); err == nil {
		t.Error("expected reload error for a situation on a removed rule")
	}
	if got := evaluate(t, m, "b"); got != 12.0 {
		t.Errorf("Evaluate(b) = %v, want 12", got)
	}

	if err := m.SetSituation(map[string]string{"inconnu": "1"}); err == nil {
		t.Error("expected error for unknown override")
	}
	if got := m.Situation(); len(got) != 1 || got["a"] != "10" {
		t.Errorf("Situation() = %v", got)
	}
}

func TestManager_Start(t *testing.T) {
	src := source.NewMemorySource(parser.Source{Path: "a.rules", Text: "a: 1"})
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, nil)
	m := newManager(t, src, collector)
	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	type reload struct {
		engine *engine.Engine
		err    error
	}
	reloads := make(chan reload, 4)
	m.OnReload(func(e *engine.Engine, err error) {
		reloads <- reload{e, err}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	next := func() reload {
		t.Helper()
		select {
		case r := <-reloads:
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for reload")
		}
		return reload{}
	}

	src.Set("a.rules", "a: 2")
	if r := next(); r.err != nil || r.engine == nil {
		t.Fatalf("reload = %+v", r)
	}
	if got := evaluate(t, m, "a"); got != 2.0 {
		t.Errorf("Evaluate(a) = %v, want 2", got)
	}

	src.Set("a.rules", "a: (")
	if r := next(); r.err == nil {
		t.Error("expected reload error")
	}
	if got := evaluate(t, m, "a"); got != 2.0 {
		t.Errorf("Evaluate(a) = %v, want 2", got)
	}

	samples, err := collector.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	counts := make(map[string]float64)
	for _, s := range samples {
		if s.Name == "test_engine_reloads_total" {
			counts[s.Labels] = s.Value
		}
	}
	if counts[`status="success"`] != 1 || counts[`status="error"`] != 1 {
		t.Errorf("reloads = %v", counts)
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestManager_ConcurrentEvaluate(t *testing.T) {
	src := source.NewMemorySource(parser.Source{Path: "a.rules", Text: "a: 1\nb: a + 1\nc: a + b"})
	m := newManager(t, src, nil)
	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			v, err := m.Evaluate("c")
			if err != nil {
				errs <- err
			} else if v != 3.0 {
				errs <- errors.New("unexpected value")
			}
		}()
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				if err := m.Load(context.Background()); err != nil {
					errs <- err
				}
			} else if err := m.SetSituation(map[string]string{"a": "1"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestManager_LoadSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := tracing.NewWithExporter(&config.TracingConfig{Sampler: tracing.SamplerAlways, ServiceName: "test"}, "test", sdktrace.WithSyncer(exporter))
	if err != nil {
		t.Fatal(err)
	}
	defer tracer.Shutdown(context.Background())

	src := source.NewMemorySource(parser.Source{Path: "a.rules", Text: "a: 1\nb: a + 1"})
	cfg := engine.DefaultManagerConfig()
	cfg.Tracer = tracer
	m, err := engine.NewManager(src, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	want := []string{"rules.read", "rules.parse", "rules.compile", "rules.load"}
	if len(names) != len(want) {
		t.Fatalf("spans = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("spans = %v, want %v", names, want)
		}
	}

	exporter.Reset()
	src.Set("a.rules", "a: c")
	if err := m.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans for a failed load")
	}
	load := spans[len(spans)-1]
	if load.Name != "rules.load" || load.Status.Code != codes.Error {
		t.Errorf("load span = %s %v", load.Name, load.Status)
	}
}
