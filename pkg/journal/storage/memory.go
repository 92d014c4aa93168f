package storage

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"regles-hq/calcul/pkg/journal"
)

var errClosed = errors.New("storage closed")

// MemoryStorage is an in-memory journal backend.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []*journal.Entry // insertion order
	closed  bool
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of entry.
func (s *MemoryStorage) Store(ctx context.Context, entry *journal.Entry) error {
	if err := ctx.Err(); err != nil {
		return journal.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journal.NewStorageError("memory", "store", errClosed)
	}
	stored := *entry
	s.entries = append(s.entries, &stored)
	return nil
}

// Query returns copies of the matching entries.
func (s *MemoryStorage) Query(ctx context.Context, query *journal.Query) ([]*journal.Entry, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	q := *query
	q.ApplyDefaults()

	s.mu.RLock()
	matched := s.matching(&q)
	s.mu.RUnlock()

	// Stable sort keeps insertion order between equal timestamps
	slices.SortStableFunc(matched, func(a, b *journal.Entry) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	if q.SortOrder == "desc" {
		slices.Reverse(matched)
	}

	start := min(q.Offset, len(matched))
	end := min(start+q.Limit, len(matched))
	result := make([]*journal.Entry, 0, end-start)
	for _, e := range matched[start:end] {
		copied := *e
		result = append(result, &copied)
	}
	return result, nil
}

// Count returns the number of matching entries.
func (s *MemoryStorage) Count(ctx context.Context, query *journal.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(query))), nil
}

// Delete removes the matching entries.
func (s *MemoryStorage) Delete(ctx context.Context, query *journal.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(e *journal.Entry) bool {
		return matches(e, query)
	})
	return int64(n - len(s.entries)), nil
}

// Trim keeps the keep most recent entries.
func (s *MemoryStorage) Trim(ctx context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excess := int64(len(s.entries)) - keep
	if excess <= 0 {
		return 0, nil
	}

	oldest := slices.Clone(s.entries)
	slices.SortStableFunc(oldest, func(a, b *journal.Entry) int {
		return cmp.Compare(a.RecordedAt.UnixNano(), b.RecordedAt.UnixNano())
	})
	drop := make(map[*journal.Entry]bool, excess)
	for _, e := range oldest[:excess] {
		drop[e] = true
	}
	s.entries = slices.DeleteFunc(s.entries, func(e *journal.Entry) bool { return drop[e] })
	return excess, nil
}

// Close marks the storage closed.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// matching must be called with mu held.
func (s *MemoryStorage) matching(query *journal.Query) []*journal.Entry {
	var matched []*journal.Entry
	for _, e := range s.entries {
		if matches(e, query) {
			matched = append(matched, e)
		}
	}
	return matched
}

func matches(e *journal.Entry, q *journal.Query) bool {
	switch {
	case q.Since != nil && e.RecordedAt.Before(*q.Since):
		return false
	case q.Until != nil && e.RecordedAt.After(*q.Until):
		return false
	case q.Rule != "" && e.Rule != q.Rule:
		return false
	case q.Status != "" && e.Status != q.Status:
		return false
	case q.EngineID != "" && e.EngineID != q.EngineID:
		return false
	}
	return true
}
