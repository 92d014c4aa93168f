package main

import (
	"fmt"

	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/journal"
	"regles-hq/calcul/pkg/journal/storage"
	"regles-hq/calcul/pkg/telemetry/metrics"
)

// openJournal opens the journal storage described by the configuration.
func openJournal(cfg *config.Config) (journal.Storage, error) {
	switch cfg.Journal.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		sqliteCfg := storage.DefaultSQLiteConfig(cfg.Journal.Path)
		sqliteCfg.Driver = cfg.Journal.Driver
		return storage.NewSQLiteStorage(sqliteCfg, logger.Slog())
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}
}

// journalWriter records evaluation results. A nil writer records nothing.
type journalWriter struct {
	storage  journal.Storage
	recorder *journal.Recorder
}

func newJournalWriter(cfg *config.Config, collector *metrics.Collector) (*journalWriter, error) {
	store, err := openJournal(cfg)
	if err != nil {
		return nil, err
	}
	recorder := journal.NewRecorder(store, &journal.RecorderConfig{
		AsyncBuffer: cfg.Journal.AsyncBuffer,
	}, logger.Slog(), collector)
	return &journalWriter{storage: store, recorder: recorder}, nil
}

// record appends the evaluation of res, or its failure, to the journal.
func (w *journalWriter) record(m *engine.Manager, res evalResult, err error) {
	if w == nil {
		return
	}
	entry := journal.NewEntry(res.Rule, res.Value, res.Unit, res.Display, err)
	entry.Traversed = res.Traversed
	entry.Duration = res.Duration
	if eng := m.Engine(); eng != nil {
		entry.WithContext(eng.ID(), eng.SituationID(), m.Situation())
	}
	if err := w.recorder.Record(entry); err != nil {
		logger.Warn("Failed to record evaluation", "rule", res.Rule, "error", err)
	}
}

// Close flushes queued entries and closes the storage.
func (w *journalWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.recorder.Close(); err != nil {
		return err
	}
	return w.storage.Close()
}
