// Package source provides rule sources for engine.Manager.
//
// FileSource reads rules files from disk. Paths may name files or
// directories; directories are walked recursively for the configured
// extensions. Watch uses fsnotify and debounces bursts of changes into a
// single event:
//
//	src, err := source.NewFileSource(source.DefaultFileSourceConfig("rules/"), logger)
//	manager, err := engine.NewManager(src, nil, logger, collector)
//	if err := manager.Load(ctx); err != nil { ... }
//	if err := manager.Start(ctx); err != nil { ... }
//
// MemorySource holds rules texts in memory and emits an event on every Set
// or Remove.
package source
