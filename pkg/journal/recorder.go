package journal

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	langErrors "regles-hq/calcul/pkg/lang/errors"
	"regles-hq/calcul/pkg/telemetry/metrics"
)

// RecorderConfig contains configuration for the journal recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the write queue.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes journal entries to storage in the background. Record
// never waits: an entry that finds the queue full is dropped and counted.
type Recorder struct {
	storage Storage
	config  *RecorderConfig
	entries chan *Entry
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Collector

	// mu orders queueing against Close: once closed is set no entry enters
	// the queue, so the worker's final drain sees every accepted entry.
	mu     sync.RWMutex
	closed bool

	written atomic.Int64
	dropped atomic.Int64
}

// NewRecorder creates a recorder and starts its writer goroutine. Close
// must be called to flush queued entries.
func NewRecorder(storage Storage, config *RecorderConfig, logger *slog.Logger, collector *metrics.Collector) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		entries: make(chan *Entry, config.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  logger.With("component", "journal.recorder"),
		metrics: collector,
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("Journal recorder started",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// NewEntry creates an entry for the evaluation of rule. A non-nil err makes
// it a failed evaluation; its type is taken from the language error it
// wraps, if any.
func NewEntry(rule string, value any, unit, display string, err error) *Entry {
	entry := &Entry{
		Rule:    rule,
		Value:   value,
		Unit:    unit,
		Display: display,
		Status:  StatusSuccess,
	}
	if err != nil {
		entry.Status = StatusError
		entry.Error = err.Error()
		entry.ErrorType = "error"
		if e := langErrors.As(err); e != nil {
			entry.ErrorType = string(e.Type)
		}
		entry.Value = nil
		entry.Display = ""
	}
	return entry
}

// WithContext sets the engine and situation an entry was computed under.
func (e *Entry) WithContext(engineID, situationID string, situation map[string]string) *Entry {
	e.EngineID = engineID
	e.SituationID = situationID
	if len(situation) > 0 {
		e.Situation = maps.Clone(situation)
	}
	return e
}

// Record queues entry for writing. It fills in the ID and recording time
// when they are unset. Record returns a *RecorderError wrapping ErrQueueFull
// or ErrRecorderClosed when the entry is dropped.
func (r *Recorder) Record(entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	if entry.Traversed != nil {
		entry.Traversed = slices.Clone(entry.Traversed)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return r.drop(entry, ErrRecorderClosed)
	}

	select {
	case r.entries <- entry:
		return nil
	default:
		r.logger.Warn("Journal queue full, dropping entry",
			"entry_id", entry.ID,
			"rule", entry.Rule,
			"capacity", r.config.AsyncBuffer,
		)
		return r.drop(entry, ErrQueueFull)
	}
}

func (r *Recorder) drop(entry *Entry, cause error) error {
	r.dropped.Add(1)
	r.metrics.RecordError("journal_dropped")
	return &RecorderError{EntryID: entry.ID, Cause: cause}
}

// Written returns the number of entries written to storage.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Dropped returns the number of entries that could not be queued.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting entries and waits for queued entries to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Debug("Journal recorder stopped",
		"written", r.written.Load(),
		"dropped", r.dropped.Load(),
	)
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.entries:
			r.write(entry)
		case <-r.done:
			for {
				select {
				case entry := <-r.entries:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, entry); err != nil {
		r.metrics.RecordError("journal_write")
		r.logger.Error("Failed to write journal entry",
			"entry_id", entry.ID,
			"rule", entry.Rule,
			"error", err,
		)
		return
	}
	r.written.Add(1)
}
