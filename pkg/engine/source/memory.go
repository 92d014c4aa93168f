package source

import (
	"context"
	"slices"
	"sync"

	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/lang/parser"
)

// MemorySource is an in-memory rule source. Set and Remove notify watchers,
// which makes it usable to drive reloads in tests and embedding programs.
type MemorySource struct {
	mu       sync.Mutex
	sources  []parser.Source
	watchers []chan engine.SourceEvent
}

// NewMemorySource creates an in-memory rule source.
func NewMemorySource(sources ...parser.Source) *MemorySource {
	return &MemorySource{sources: sources}
}

// String describes the source.
func (s *MemorySource) String() string {
	return "memory"
}

// Load returns a copy of the sources in memory.
func (s *MemorySource) Load(ctx context.Context) ([]parser.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sources), nil
}

// Set adds or replaces the rules text stored under path.
func (s *MemorySource) Set(path, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.sources, func(src parser.Source) bool { return src.Path == path })
	if i >= 0 {
		s.sources[i].Text = text
		s.notify(engine.SourceEvent{Type: engine.SourceEventModified, Path: path})
		return
	}
	s.sources = append(s.sources, parser.Source{Path: path, Text: text})
	s.notify(engine.SourceEvent{Type: engine.SourceEventCreated, Path: path})
}

// Remove drops the rules text stored under path.
func (s *MemorySource) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.sources)
	s.sources = slices.DeleteFunc(s.sources, func(src parser.Source) bool { return src.Path == path })
	if len(s.sources) != n {
		s.notify(engine.SourceEvent{Type: engine.SourceEventDeleted, Path: path})
	}
}

// Watch returns a channel receiving an event after every change. Events not
// yet received are coalesced. The channel is closed when ctx is cancelled.
func (s *MemorySource) Watch(ctx context.Context) (<-chan engine.SourceEvent, error) {
	eventCh := make(chan engine.SourceEvent, 1)

	s.mu.Lock()
	s.watchers = append(s.watchers, eventCh)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.watchers = slices.DeleteFunc(s.watchers, func(ch chan engine.SourceEvent) bool { return ch == eventCh })
		close(eventCh)
	}()

	return eventCh, nil
}

// notify must be called with mu held.
func (s *MemorySource) notify(event engine.SourceEvent) {
	for _, ch := range s.watchers {
		select {
		case ch <- event:
		default:
		}
	}
}
