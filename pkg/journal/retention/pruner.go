package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/journal"
	"regles-hq/calcul/pkg/journal/export"
)

// Config contains configuration for the pruner.
type Config struct {
	// MaxAge is how long entries are kept. Zero keeps entries forever.
	MaxAge time.Duration

	// MaxEntries is the number of most recent entries kept. Zero is unlimited.
	MaxEntries int64

	// Schedule is the cron expression used by the Scheduler.
	Schedule string

	// ArchivePath is the directory receiving pruned entries. Empty disables
	// archiving.
	ArchivePath string
}

// ConfigFrom converts the retention section of the configuration file.
func ConfigFrom(cfg config.RetentionConfig) *Config {
	return &Config{
		MaxAge:      cfg.MaxAge,
		MaxEntries:  cfg.MaxEntries,
		Schedule:    cfg.Schedule,
		ArchivePath: cfg.ArchivePath,
	}
}

// Pruner enforces retention on a journal.
type Pruner struct {
	storage journal.Storage
	config  *Config
	logger  *slog.Logger

	// now is replaced in tests
	now func() time.Time
}

// NewPruner creates a pruner over storage.
func NewPruner(storage journal.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "journal.retention"),
		now:     time.Now,
	}
}

// Prune deletes entries older than MaxAge, then the oldest entries beyond
// MaxEntries. It returns the number of entries deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.MaxAge > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxEntries > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("Journal pruned",
			"deleted", total,
			"max_age", p.config.MaxAge,
			"max_entries", p.config.MaxEntries,
		)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.config.MaxAge)
	query := &journal.Query{Until: &cutoff}

	if p.config.ArchivePath != "" {
		entries, err := p.queryAll(ctx, &journal.Query{Until: &cutoff, SortOrder: "asc"}, -1)
		if err != nil {
			return 0, err
		}
		if err := p.archive(ctx, "age", entries); err != nil {
			return 0, err
		}
	}

	return p.storage.Delete(ctx, query)
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &journal.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	excess := count - p.config.MaxEntries
	if excess <= 0 {
		return 0, nil
	}

	if p.config.ArchivePath != "" {
		entries, err := p.queryAll(ctx, &journal.Query{SortOrder: "asc"}, excess)
		if err != nil {
			return 0, err
		}
		if err := p.archive(ctx, "count", entries); err != nil {
			return 0, err
		}
	}

	return p.storage.Trim(ctx, p.config.MaxEntries)
}

// queryAll pages through the entries matching query, up to limit entries
// when limit is not negative.
func (p *Pruner) queryAll(ctx context.Context, query *journal.Query, limit int64) ([]*journal.Entry, error) {
	var all []*journal.Entry
	for {
		page := *query
		page.Limit = journal.MaxLimit
		page.Offset = len(all)
		if limit >= 0 {
			page.Limit = int(min(int64(journal.MaxLimit), limit-int64(len(all))))
			if page.Limit == 0 {
				return all, nil
			}
		}

		entries, err := p.storage.Query(ctx, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to query entries: %w", err)
		}
		all = append(all, entries...)
		if len(entries) < page.Limit {
			return all, nil
		}
	}
}

// archive writes entries to a JSON file in ArchivePath.
func (p *Pruner) archive(ctx context.Context, reason string, entries []*journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("journal-%s-%s.json", reason, p.now().UTC().Format("20060102-150405.000000000")))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, entries, f); err != nil {
		return fmt.Errorf("failed to archive entries: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}

	p.logger.Info("Journal entries archived",
		"archive_file", path,
		"entries", len(entries),
	)
	return nil
}
