package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/lang/parser"
)

// FileSourceConfig contains configuration for a file source.
type FileSourceConfig struct {
	// Paths are rules files or directories. Directories are walked
	// recursively for files with one of Extensions; files given explicitly
	// are always loaded.
	Paths []string

	// Extensions is the list of rules file extensions (e.g., ".rules", ".yaml")
	Extensions []string

	// DebounceInterval is the time to wait before emitting an event after
	// detecting file changes (default: 100ms)
	DebounceInterval time.Duration

	// SkipHidden skips files and directories whose name starts with a dot
	SkipHidden bool
}

// DefaultFileSourceConfig returns the default file source configuration.
func DefaultFileSourceConfig(paths ...string) *FileSourceConfig {
	return &FileSourceConfig{
		Paths:            paths,
		Extensions:       slices.Clone(config.DefaultRulesExtensions),
		DebounceInterval: config.DefaultRulesDebounceInterval,
		SkipHidden:       true,
	}
}

// FileSourceConfigFrom converts the rules section of the configuration file.
func FileSourceConfigFrom(cfg config.RulesConfig) *FileSourceConfig {
	return &FileSourceConfig{
		Paths:            cfg.Paths,
		Extensions:       cfg.Extensions,
		DebounceInterval: cfg.DebounceInterval,
		SkipHidden:       true,
	}
}

// FileSource loads rules from files on disk and watches them with fsnotify.
type FileSource struct {
	config *FileSourceConfig
	logger *slog.Logger
}

// NewFileSource creates a file-based rule source.
func NewFileSource(cfg *FileSourceConfig, logger *slog.Logger) (*FileSource, error) {
	if cfg == nil || len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("at least one rules path is required")
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = slices.Clone(config.DefaultRulesExtensions)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{config: cfg, logger: logger}, nil
}

// String describes the source.
func (s *FileSource) String() string {
	return strings.Join(s.config.Paths, ", ")
}

// Files returns the rules files of the source. Each path contributes in the
// order given, a directory's files in lexical order. A file reached twice is
// listed once.
func (s *FileSource) Files() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range s.config.Paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path %q: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && s.hidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && s.hasValidExtension(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %q: %w", root, err)
		}
	}
	return files, nil
}

// Load reads every rules file of the source.
func (s *FileSource) Load(ctx context.Context) ([]parser.Source, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no rules files found in %s", s.String())
	}

	sources := make([]parser.Source, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %q: %w", path, err)
		}
		sources = append(sources, parser.Source{Path: path, Text: string(data)})
	}

	s.logger.Debug("Loaded rules files",
		"source", s.String(),
		"files", len(sources),
	)
	return sources, nil
}

// Watch watches the paths of the source and sends one event per burst of
// changes. New subdirectories are watched as they appear. The channel is
// closed when ctx is cancelled.
func (s *FileSource) Watch(ctx context.Context) (<-chan engine.SourceEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &fileWatcher{
		source:   s,
		watcher:  watcher,
		files:    make(map[string]bool),
		debounce: NewDebouncer(s.config.DebounceInterval),
	}
	for _, path := range s.config.Paths {
		if err := w.addPath(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch path %q: %w", path, err)
		}
	}

	eventCh := make(chan engine.SourceEvent)
	go w.run(ctx, eventCh)

	s.logger.Info("File watcher started",
		"source", s.String(),
		"debounce_ms", s.config.DebounceInterval.Milliseconds(),
	)
	return eventCh, nil
}

func (s *FileSource) hidden(path string) bool {
	return s.config.SkipHidden && strings.HasPrefix(filepath.Base(path), ".")
}

func (s *FileSource) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range s.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

// fileWatcher is the state of one Watch call.
type fileWatcher struct {
	source   *FileSource
	watcher  *fsnotify.Watcher
	debounce *Debouncer

	// Explicitly configured files, watched through their directory
	files map[string]bool
	// Watched directory trees
	roots []string
}

func (w *fileWatcher) run(ctx context.Context, eventCh chan<- engine.SourceEvent) {
	logger := w.source.logger
	pending := make(chan engine.SourceEvent, 1)

	defer func() {
		w.debounce.Stop()
		if err := w.watcher.Close(); err != nil {
			logger.Warn("Failed to close file watcher", "error", err)
		}
		close(eventCh)
		logger.Info("File watcher stopped", "source", w.source.String())
	}()

	send := func(event engine.SourceEvent) bool {
		select {
		case eventCh <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && w.underRoot(event.Name) {
				if isDir, _ := isDirectory(event.Name); isDir {
					if err := w.addDirectory(event.Name); err != nil {
						logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !w.shouldProcessEvent(event) {
				continue
			}

			logger.Debug("File event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			sourceEvent := engine.SourceEvent{Type: eventType(event.Op), Path: event.Name}
			w.debounce.Trigger(func() {
				select {
				case pending <- sourceEvent:
				default:
				}
			})

		case event := <-pending:
			if !send(event) {
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("File watcher error", "error", err)
			if !send(engine.SourceEvent{Error: err}) {
				return
			}
		}
	}
}

// addPath watches a directory tree, or the directory of a single file.
func (w *fileWatcher) addPath(path string) error {
	isDir, err := isDirectory(path)
	if err != nil {
		return err
	}
	if isDir {
		w.roots = append(w.roots, filepath.Clean(path))
		return w.addDirectory(path)
	}

	// Single files are watched through their directory
	w.files[filepath.Clean(path)] = true
	return w.watcher.Add(filepath.Dir(path))
}

// addDirectory watches a directory and all its subdirectories.
func (w *fileWatcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.source.hidden(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.source.logger.Debug("Watching directory", "path", path)
		return nil
	})
}

// shouldProcessEvent determines if an event may change the rules.
func (w *fileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	name := filepath.Clean(event.Name)
	if w.files[name] {
		return true
	}
	if !w.underRoot(name) {
		return false
	}
	return w.source.hasValidExtension(name) && !w.source.hidden(name)
}

func (w *fileWatcher) underRoot(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func eventType(op fsnotify.Op) engine.SourceEventType {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return engine.SourceEventDeleted
	case op.Has(fsnotify.Create):
		return engine.SourceEventCreated
	default:
		return engine.SourceEventModified
	}
}

func isDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
