package source

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/lang/parser"
)

// GitSourceConfig contains configuration for a Git source.
type GitSourceConfig struct {
	// Repository is the path of a local Git repository.
	Repository string

	// Revision is the commit read: a branch, a tag, a hash or an expression
	// such as "HEAD~1" (default: HEAD)
	Revision string

	// Paths select files or directories of the commit tree, relative to the
	// repository root. Empty selects the whole tree.
	Paths []string

	// Extensions is the list of rules file extensions
	Extensions []string

	// PollInterval is how often Watch resolves the revision again
	// (default: 2s)
	PollInterval time.Duration

	// SkipHidden skips files and directories whose name starts with a dot
	SkipHidden bool
}

// GitSourceConfigFrom converts the rules section of the configuration file.
func GitSourceConfigFrom(cfg config.RulesConfig) *GitSourceConfig {
	return &GitSourceConfig{
		Repository:   cfg.Git.Repository,
		Revision:     cfg.Git.Revision,
		Paths:        cfg.Paths,
		Extensions:   cfg.Extensions,
		PollInterval: cfg.Git.PollInterval,
		SkipHidden:   true,
	}
}

// CommitInfo describes the commit the rules are read from.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// GitSource loads rules from a commit of a local Git repository. Rules are
// read from the object database, so uncommitted changes are ignored.
type GitSource struct {
	config *GitSourceConfig
	logger *slog.Logger

	// mu serializes every use of repo
	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource creates a rule source over a local Git repository.
func NewGitSource(cfg *GitSourceConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg == nil || cfg.Repository == "" {
		return nil, fmt.Errorf("git repository path is required")
	}
	if cfg.Revision == "" {
		cfg.Revision = config.DefaultGitRevision
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultGitPollInterval
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = slices.Clone(config.DefaultRulesExtensions)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{config: cfg, logger: logger}, nil
}

// String describes the source.
func (s *GitSource) String() string {
	return fmt.Sprintf("git:%s@%s", s.config.Repository, s.config.Revision)
}

// open must be called with mu held.
func (s *GitSource) open() (*gogit.Repository, error) {
	if s.repo == nil {
		repo, err := gogit.PlainOpen(s.config.Repository)
		if err != nil {
			return nil, fmt.Errorf("failed to open repository %q: %w", s.config.Repository, err)
		}
		s.repo = repo
	}
	return s.repo, nil
}

// resolve must be called with mu held.
func (s *GitSource) resolve() (*object.Commit, error) {
	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(s.config.Revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", s.config.Revision, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	return commit, nil
}

// Commit returns the commit the revision currently resolves to.
func (s *GitSource) Commit() (*CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, err := s.resolve()
	if err != nil {
		return nil, err
	}
	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Email:     commit.Author.Email,
		Timestamp: commit.Author.When,
		Message:   strings.TrimSpace(commit.Message),
	}, nil
}

// Load reads the selected rules files of the commit, in lexical order of
// their path.
func (s *GitSource) Load(ctx context.Context) ([]parser.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	commit, err := s.resolve()
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", commit.Hash, err)
	}

	var sources []parser.Source
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.selected(f.Name) {
			return nil
		}
		text, err := f.Contents()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		sources = append(sources, parser.Source{Path: f.Name, Text: text})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no rules files found in %s", s.String())
	}

	slices.SortFunc(sources, func(a, b parser.Source) int { return strings.Compare(a.Path, b.Path) })

	s.logger.Debug("Loaded rules files",
		"source", s.String(),
		"commit", commit.Hash.String()[:8],
		"files", len(sources),
	)
	return sources, nil
}

// selected reports whether the tree file name is a rules file of the source.
// Files named explicitly in Paths are always selected.
func (s *GitSource) selected(name string) bool {
	if s.config.SkipHidden {
		for part := range strings.SplitSeq(name, "/") {
			if strings.HasPrefix(part, ".") {
				return false
			}
		}
	}

	inPaths := len(s.config.Paths) == 0
	for _, p := range s.config.Paths {
		// Tree names always use forward slashes
		p = strings.Trim(path.Clean(p), "/")
		if name == p {
			return true
		}
		if p == "" || p == "." || strings.HasPrefix(name, p+"/") {
			inPaths = true
		}
	}
	if !inPaths {
		return false
	}

	for _, ext := range s.config.Extensions {
		if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Watch resolves the revision every PollInterval and sends an event when it
// moves to another commit. The event Path is the new commit hash. The
// channel is closed when ctx is cancelled.
func (s *GitSource) Watch(ctx context.Context) (<-chan engine.SourceEvent, error) {
	s.mu.Lock()
	commit, err := s.resolve()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	eventCh := make(chan engine.SourceEvent)
	go s.poll(ctx, commit.Hash, eventCh)

	s.logger.Info("Git watcher started",
		"source", s.String(),
		"poll_interval", s.config.PollInterval,
		"initial_commit", commit.Hash.String()[:8],
	)
	return eventCh, nil
}

func (s *GitSource) poll(ctx context.Context, last plumbing.Hash, eventCh chan<- engine.SourceEvent) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer func() {
		ticker.Stop()
		close(eventCh)
		s.logger.Info("Git watcher stopped", "source", s.String())
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var event engine.SourceEvent
		s.mu.Lock()
		commit, err := s.resolve()
		s.mu.Unlock()
		switch {
		case err != nil:
			s.logger.Error("Failed to resolve revision", "source", s.String(), "error", err)
			event.Error = err
		case commit.Hash != last:
			s.logger.Debug("Revision moved",
				"from", last.String()[:8],
				"to", commit.Hash.String()[:8],
			)
			last = commit.Hash
			event = engine.SourceEvent{Type: engine.SourceEventModified, Path: commit.Hash.String()}
		default:
			continue
		}

		select {
		case eventCh <- event:
		case <-ctx.Done():
			return
		}
	}
}
