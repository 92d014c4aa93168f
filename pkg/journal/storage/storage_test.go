package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"regles-hq/calcul/pkg/journal"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func entryAt(id, rule string, minutes int, status string) *journal.Entry {
	e := &journal.Entry{
		ID:         id,
		RecordedAt: base.Add(time.Duration(minutes) * time.Minute),
		Rule:       rule,
		Value:      float64(minutes),
		Unit:       "€",
		Display:    "x",
		Status:     status,
		EngineID:   "engine-1",
	}
	if status == journal.StatusError {
		e.Value = nil
		e.Error = "boom"
		e.ErrorType = "eval"
	}
	return e
}

// backends returns a fresh instance of every backend.
func backends(t *testing.T) map[string]journal.Storage {
	t.Helper()
	sqlite, err := NewSQLiteStorage(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "journal.db")), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]journal.Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
}

func seed(t *testing.T, s journal.Storage) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []*journal.Entry{
		entryAt("1", "net", 0, journal.StatusSuccess),
		entryAt("2", "brut", 1, journal.StatusSuccess),
		entryAt("3", "net", 2, journal.StatusError),
		entryAt("4", "net", 3, journal.StatusSuccess),
		entryAt("5", "brut", 4, journal.StatusSuccess),
	} {
		if err := s.Store(ctx, e); err != nil {
			t.Fatalf("Store(%s) failed: %v", e.ID, err)
		}
	}
}

func ids(entries []*journal.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestStorage_Query(t *testing.T) {
	since := base.Add(time.Minute)
	until := base.Add(3 * time.Minute)

	tests := []struct {
		name  string
		query journal.Query
		want  []string
	}{
		{"all, newest first", journal.Query{}, []string{"5", "4", "3", "2", "1"}},
		{"ascending", journal.Query{SortOrder: "asc"}, []string{"1", "2", "3", "4", "5"}},
		{"limit and offset", journal.Query{Limit: 2, Offset: 1}, []string{"4", "3"}},
		{"offset past end", journal.Query{Offset: 10}, []string{}},
		{"by rule", journal.Query{Rule: "net"}, []string{"4", "3", "1"}},
		{"by status", journal.Query{Status: journal.StatusError}, []string{"3"}},
		{"time range", journal.Query{Since: &since, Until: &until}, []string{"4", "3", "2"}},
		{"rule and status", journal.Query{Rule: "net", Status: journal.StatusSuccess, SortOrder: "asc"}, []string{"1", "4"}},
		{"by engine", journal.Query{EngineID: "other"}, []string{}},
	}

	for name, s := range backends(t) {
		seed(t, s)
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				q := tt.query
				got, err := s.Query(context.Background(), &q)
				if err != nil {
					t.Fatalf("Query() failed: %v", err)
				}
				if !reflect.DeepEqual(ids(got), tt.want) {
					t.Errorf("Query() = %v, want %v", ids(got), tt.want)
				}
			})
		}
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	entry := &journal.Entry{
		ID:          "round-trip",
		RecordedAt:  base,
		Rule:        "résultat",
		Value:       []any{1.5, true, "texte", nil},
		Display:     "[1.5, oui, 'texte', undefined]",
		Status:      journal.StatusSuccess,
		EngineID:    "engine-1",
		SituationID: "situation-1",
		Situation:   map[string]string{"salaire": "3000 €/mois"},
		Traversed:   []string{"résultat", "salaire"},
		Duration:    1500 * time.Microsecond,
	}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Store(ctx, entry); err != nil {
				t.Fatalf("Store() failed: %v", err)
			}
			got, err := s.Query(ctx, &journal.Query{})
			if err != nil || len(got) != 1 {
				t.Fatalf("Query() = %v, %v", got, err)
			}

			e := got[0]
			if !e.RecordedAt.Equal(entry.RecordedAt) {
				t.Errorf("RecordedAt = %v, want %v", e.RecordedAt, entry.RecordedAt)
			}
			e.RecordedAt = entry.RecordedAt
			if !reflect.DeepEqual(e, entry) {
				t.Errorf("entry = %+v, want %+v", e, entry)
			}
		})
	}
}

func TestStorage_CountDeleteTrim(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s)

			if n, err := s.Count(ctx, &journal.Query{Rule: "net"}); err != nil || n != 3 {
				t.Errorf("Count(net) = %d, %v, want 3", n, err)
			}

			cutoff := base.Add(time.Minute)
			if n, err := s.Delete(ctx, &journal.Query{Until: &cutoff, Limit: 1}); err != nil || n != 2 {
				t.Errorf("Delete() = %d, %v, want 2", n, err)
			}

			if n, err := s.Trim(ctx, 1); err != nil || n != 2 {
				t.Errorf("Trim(1) = %d, %v, want 2", n, err)
			}
			if n, err := s.Trim(ctx, 10); err != nil || n != 0 {
				t.Errorf("Trim(10) = %d, %v, want 0", n, err)
			}

			got, err := s.Query(ctx, &journal.Query{})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids(got), []string{"5"}) {
				t.Errorf("remaining = %v, want [5]", ids(got))
			}
		})
	}
}

func TestStorage_InvalidQuery(t *testing.T) {
	later := base.Add(time.Hour)
	queries := []journal.Query{
		{Limit: -1},
		{Limit: journal.MaxLimit + 1},
		{Offset: -1},
		{SortOrder: "up"},
		{Status: "blocked"},
		{Since: &later, Until: &base},
	}

	for name, s := range backends(t) {
		for _, q := range queries {
			_, err := s.Query(context.Background(), &q)
			var queryErr *journal.QueryError
			if !errors.As(err, &queryErr) {
				t.Errorf("%s: Query(%+v) error = %v, want *QueryError", name, q, err)
			}
		}
	}
}

func TestSQLiteStorage_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(DefaultSQLiteConfig(path), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, entryAt("1", "net", 0, journal.StatusSuccess)); err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, entryAt("1", "net", 0, journal.StatusSuccess)); err == nil {
		t.Error("expected error for a duplicate id")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewSQLiteStorage(DefaultSQLiteConfig(path), nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if n, err := s.Count(ctx, &journal.Query{}); err != nil || n != 1 {
		t.Errorf("Count() after reopen = %d, %v, want 1", n, err)
	}
}

func TestNewSQLiteStorage_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config *SQLiteConfig
	}{
		{"nil config", nil},
		{"empty path", &SQLiteConfig{}},
		{"unknown driver", &SQLiteConfig{Path: "x.db", Driver: "postgres"}},
		{"missing directory", DefaultSQLiteConfig(filepath.Join(t.TempDir(), "missing", "journal.db"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLiteStorage(tt.config, nil)
			var storageErr *journal.StorageError
			if !errors.As(err, &storageErr) {
				t.Errorf("NewSQLiteStorage() error = %v, want *StorageError", err)
			}
		})
	}
}

func TestMemoryStorage_Closed(t *testing.T) {
	s := NewMemoryStorage()
	s.Close()
	if err := s.Store(context.Background(), entryAt("1", "net", 0, journal.StatusSuccess)); err == nil {
		t.Error("expected error after Close")
	}
}
