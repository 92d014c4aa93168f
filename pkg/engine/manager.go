package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"regles-hq/calcul/pkg/lang"
	"regles-hq/calcul/pkg/lang/compiler"
	"regles-hq/calcul/pkg/lang/parser"
	"regles-hq/calcul/pkg/telemetry/metrics"
	"regles-hq/calcul/pkg/telemetry/tracing"
)

// RuleSource provides rule texts to a Manager.
type RuleSource interface {
	// Load returns every rules text of the source, in program order.
	Load(ctx context.Context) ([]parser.Source, error)

	// Watch sends an event whenever the rules may have changed.
	// The channel is closed when the context is cancelled.
	Watch(ctx context.Context) (<-chan SourceEvent, error)

	// String describes the source in logs and errors.
	String() string
}

// SourceEvent represents a change of the rule source.
type SourceEvent struct {
	// Type is the event type ("created", "modified", "deleted").
	Type SourceEventType

	// Path is the file path that changed.
	Path string

	// Error is any error that occurred while watching.
	Error error
}

// SourceEventType represents the type of rule source event.
type SourceEventType string

const (
	SourceEventCreated  SourceEventType = "created"
	SourceEventModified SourceEventType = "modified"
	SourceEventDeleted  SourceEventType = "deleted"
)

// ManagerConfig contains configuration for a Manager.
type ManagerConfig struct {
	// Engine configures every engine the manager builds.
	Engine *Config

	// Strict rejects unknown mechanism fields.
	Strict bool

	// MaxFileSize is the largest rules text accepted, in bytes.
	MaxFileSize int64

	// Tracer traces loads. Nil disables tracing.
	Tracer *tracing.Tracer
}

// DefaultManagerConfig returns the default manager configuration.
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		Engine:      DefaultConfig(),
		MaxFileSize: 10 * 1024 * 1024,
	}
}

// Manager owns the engine built from a rule source and rebuilds it when the
// source changes. The installed situation survives reloads. A Manager is safe
// for concurrent use: evaluations are serialized.
type Manager struct {
	source  RuleSource
	config  *ManagerConfig
	logger  *slog.Logger
	metrics *metrics.Collector

	// mu guards the engine pointer and the load bookkeeping
	mu           sync.RWMutex
	engine       *Engine
	generation   int
	lastLoadTime time.Time
	lastLoadErr  error

	// evalMu serializes every use of the engine, which is not thread-safe
	evalMu    sync.Mutex
	situation map[string]string

	onReload func(*Engine, error)

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewManager creates a manager over a rule source. Load must be called
// before evaluating.
func NewManager(source RuleSource, config *ManagerConfig, logger *slog.Logger, collector *metrics.Collector) (*Manager, error) {
	if source == nil {
		return nil, fmt.Errorf("rule source cannot be nil")
	}
	if config == nil {
		config = DefaultManagerConfig()
	}
	if config.Engine == nil {
		config.Engine = DefaultConfig()
	}
	if err := config.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Tracer == nil {
		config.Tracer = tracing.Noop()
	}

	return &Manager{
		source:    source,
		config:    config,
		logger:    logger,
		metrics:   collector,
		situation: make(map[string]string),
		stopCh:    make(chan struct{}),
	}, nil
}

// OnReload registers a function called after every reload triggered by the
// source, with the new engine or the reload error. It must be set before
// Start.
func (m *Manager) OnReload(fn func(*Engine, error)) {
	m.onReload = fn
}

// Load compiles the rules of the source and replaces the engine. On failure
// the previous engine, if any, stays in place.
func (m *Manager) Load(ctx context.Context) (err error) {
	start := time.Now()
	loadID := uuid.NewString()

	ctx, span := m.config.Tracer.Start(ctx, "rules.load", trace.WithAttributes(
		attribute.String(tracing.AttrSource, m.source.String()),
		attribute.String(tracing.AttrLoadID, loadID),
	))
	defer func() { tracing.End(span, err) }()

	ns, err := m.compile(ctx)
	duration := time.Since(start)
	if err != nil {
		m.metrics.RecordCompile(metrics.StatusError, duration, 0)
		return m.loadFailed(loadID, err)
	}
	m.metrics.RecordCompile(metrics.StatusSuccess, duration, len(ns.Rules))

	eng, err := New(ns, m.config.Engine, m.logger, m.metrics)
	if err != nil {
		return m.loadFailed(loadID, err)
	}

	m.evalMu.Lock()
	defer m.evalMu.Unlock()

	if len(m.situation) > 0 {
		if _, err := eng.SetSituation(m.situation); err != nil {
			return m.loadFailed(loadID, err)
		}
	}

	m.mu.Lock()
	m.engine = eng
	m.generation++
	m.lastLoadTime = time.Now()
	m.lastLoadErr = nil
	generation := m.generation
	m.mu.Unlock()

	tracing.SetEngineAttributes(span, eng.ID(), generation, len(ns.Rules), len(m.situation))

	m.logger.Info("Rules loaded",
		"source", m.source.String(),
		"load_id", loadID,
		"generation", generation,
		"rules", len(ns.Rules),
		"engine_id", eng.ID(),
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

func (m *Manager) compile(ctx context.Context) (*compiler.Namespace, error) {
	_, span := m.config.Tracer.Start(ctx, "rules.read")
	sources, err := m.source.Load(ctx)
	if err == nil {
		var size int64
		for _, src := range sources {
			size += int64(len(src.Text))
		}
		tracing.SetSourceAttributes(span, m.source.String(), len(sources), size)
	}
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	_, span = m.config.Tracer.Start(ctx, "rules.parse")
	p := parser.NewParser().
		WithStrictMode(m.config.Strict).
		WithMaxFileSize(m.config.MaxFileSize)
	program, err := p.ParseSources(sources)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	_, span = m.config.Tracer.Start(ctx, "rules.compile")
	ns, err := lang.CompileProgram(program)
	tracing.End(span, err)
	return ns, err
}

func (m *Manager) loadFailed(loadID string, err error) error {
	err = &ReloadError{Source: m.source.String(), Cause: err}

	m.mu.Lock()
	m.lastLoadErr = err
	m.mu.Unlock()

	m.logger.Error("Failed to load rules",
		"source", m.source.String(),
		"load_id", loadID,
		"error", err,
	)
	return err
}

// Engine returns the current engine, or nil before the first successful load.
// Callers must not use it concurrently with the manager's own methods.
func (m *Manager) Engine() *Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

func (m *Manager) current() (*Engine, error) {
	eng := m.Engine()
	if eng == nil {
		return nil, ErrNoRulesLoaded
	}
	return eng, nil
}

// Evaluate evaluates a rule on the current engine.
func (m *Manager) Evaluate(name string) (compiler.Value, error) {
	m.evalMu.Lock()
	defer m.evalMu.Unlock()

	eng, err := m.current()
	if err != nil {
		return nil, err
	}
	return eng.Evaluate(name)
}

// TraversedRules returns the traversed rules of name on the current engine.
func (m *Manager) TraversedRules(name string) ([]string, error) {
	m.evalMu.Lock()
	defer m.evalMu.Unlock()

	eng, err := m.current()
	if err != nil {
		return nil, err
	}
	return eng.TraversedRules(name)
}

// SetSituation installs a situation on the current engine and keeps it for
// the engines built by later reloads.
func (m *Manager) SetSituation(overrides map[string]string) error {
	m.evalMu.Lock()
	defer m.evalMu.Unlock()

	eng, err := m.current()
	if err != nil {
		return err
	}
	if _, err := eng.SetSituation(overrides); err != nil {
		return err
	}
	m.situation = eng.Situation()
	return nil
}

// Situation returns a copy of the installed situation.
func (m *Manager) Situation() map[string]string {
	m.evalMu.Lock()
	defer m.evalMu.Unlock()
	return maps.Clone(m.situation)
}

// Generation returns the number of successful loads.
func (m *Manager) Generation() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// LastLoad returns the time of the last successful load and the error of the
// last attempt, nil when it succeeded.
func (m *Manager) LastLoad() (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadTime, m.lastLoadErr
}

// Start watches the source and reloads the rules on every event, until ctx
// is cancelled or Close is called.
func (m *Manager) Start(ctx context.Context) error {
	eventCh, err := m.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.source.String(), err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		for {
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			case event, ok := <-eventCh:
				if !ok {
					return
				}
				m.handleSourceEvent(ctx, event)
			}
		}
	}()

	m.logger.Info("Watching rules", "source", m.source.String())
	return nil
}

// handleSourceEvent reloads the rules after a source change.
func (m *Manager) handleSourceEvent(ctx context.Context, event SourceEvent) {
	if event.Error != nil {
		m.logger.Error("Rule source error", "source", m.source.String(), "error", event.Error)
		return
	}

	m.logger.Info("Rule source changed",
		"type", event.Type,
		"path", event.Path,
	)

	err := m.Load(ctx)
	if err != nil {
		m.metrics.RecordReload(metrics.StatusError)
	} else {
		m.metrics.RecordReload(metrics.StatusSuccess)
	}

	if m.onReload != nil {
		m.onReload(m.Engine(), err)
	}
}

// Close stops watching and waits for a reload in progress.
func (m *Manager) Close() error {
	m.once.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	return nil
}
