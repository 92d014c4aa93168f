package source

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"regles-hq/calcul/pkg/engine"
)

// commitFiles writes files into the work tree of repo and commits them.
func commitFiles(t *testing.T, repo *gogit.Repository, dir string, files map[string]string, message string) plumbing.Hash {
	t.Helper()
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	for name, content := range files {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
		if _, err := worktree.Add(name); err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
	}
	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash
}

func createTestRepo(t *testing.T) (*gogit.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	return repo, dir
}

func TestNewGitSource(t *testing.T) {
	if _, err := NewGitSource(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewGitSource(&GitSourceConfig{}, nil); err == nil {
		t.Error("expected error without repository")
	}

	s, err := NewGitSource(&GitSourceConfig{Repository: "repo"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.String() != "git:repo@HEAD" {
		t.Errorf("String() = %q", s.String())
	}
	if s.config.PollInterval <= 0 || len(s.config.Extensions) == 0 {
		t.Errorf("defaults not applied: %+v", s.config)
	}
}

func TestGitSource_Load(t *testing.T) {
	repo, dir := createTestRepo(t)
	first := commitFiles(t, repo, dir, map[string]string{
		"paie/salaire.rules": "salaire: 2000 €/mois\n",
		"paie/net.rules":     "net: salaire * 78%\n",
		"notes.txt":          "ignored",
		".ci/check.rules":    "ignored: 1\n",
	}, "initial rules")
	commitFiles(t, repo, dir, map[string]string{
		"paie/salaire.rules": "salaire: 2500 €/mois\n",
	}, "raise")

	// Uncommitted changes are not read
	writeFile(t, filepath.Join(dir, "paie", "net.rules"), "net: 0\n")

	tests := []struct {
		name     string
		revision string
		paths    []string
		want     map[string]string
		wantErr  bool
	}{
		{
			name: "head",
			want: map[string]string{
				"paie/net.rules":     "net: salaire * 78%\n",
				"paie/salaire.rules": "salaire: 2500 €/mois\n",
			},
		},
		{
			name:     "previous commit",
			revision: "HEAD~1",
			want: map[string]string{
				"paie/net.rules":     "net: salaire * 78%\n",
				"paie/salaire.rules": "salaire: 2000 €/mois\n",
			},
		},
		{
			name:     "hash",
			revision: first.String(),
			paths:    []string{"./paie/"},
			want: map[string]string{
				"paie/net.rules":     "net: salaire * 78%\n",
				"paie/salaire.rules": "salaire: 2000 €/mois\n",
			},
		},
		{
			name:  "explicit file",
			paths: []string{"notes.txt"},
			want:  map[string]string{"notes.txt": "ignored"},
		},
		{name: "no rules files", paths: []string{"missing"}, wantErr: true},
		{name: "unknown revision", revision: "v9", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewGitSource(&GitSourceConfig{
				Repository: dir,
				Revision:   tt.revision,
				Paths:      tt.paths,
				SkipHidden: true,
			}, nil)
			if err != nil {
				t.Fatal(err)
			}

			sources, err := s.Load(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if len(sources) != len(tt.want) {
				t.Fatalf("Load() = %v, want %v", sources, tt.want)
			}
			for i, src := range sources {
				if i > 0 && sources[i-1].Path >= src.Path {
					t.Errorf("sources not sorted: %q before %q", sources[i-1].Path, src.Path)
				}
				if tt.want[src.Path] != src.Text {
					t.Errorf("%s = %q, want %q", src.Path, src.Text, tt.want[src.Path])
				}
			}
		})
	}
}

func TestGitSource_Commit(t *testing.T) {
	repo, dir := createTestRepo(t)
	hash := commitFiles(t, repo, dir, map[string]string{"a.rules": "a: 1\n"}, "add a\n")

	s, err := NewGitSource(&GitSourceConfig{Repository: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	info, err := s.Commit()
	if err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if info.SHA != hash.String() || info.Message != "add a" || info.Author != "Test User" {
		t.Errorf("Commit() = %+v", info)
	}

	missing, err := NewGitSource(&GitSourceConfig{Repository: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := missing.Commit(); err == nil {
		t.Error("expected error for a directory that is not a repository")
	}
}

func TestGitSource_Watch(t *testing.T) {
	repo, dir := createTestRepo(t)
	commitFiles(t, repo, dir, map[string]string{"a.rules": "a: 1\n"}, "add a")

	s, err := NewGitSource(&GitSourceConfig{
		Repository:   dir,
		PollInterval: 10 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	hash := commitFiles(t, repo, dir, map[string]string{"a.rules": "a: 2\n"}, "change a")
	event := receive(t, events)
	if event.Type != engine.SourceEventModified || event.Path != hash.String() {
		t.Errorf("event = %+v, want a modification to %s", event, hash)
	}

	sources, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sources[0].Text != "a: 2\n" {
		t.Errorf("Load() after commit = %q", sources[0].Text)
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
