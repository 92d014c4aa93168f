// Package retention prunes journal entries by age and by count.
//
// Pruning runs in two phases: entries older than MaxAge are deleted, then
// the oldest entries beyond MaxEntries. With an ArchivePath, entries are
// written to a JSON file in that directory before they are deleted.
//
// The Scheduler runs the pruner on a cron schedule (robfig/cron standard
// syntax, e.g. "0 3 * * *" or "@every 1h") while a long-running command
// such as `calcul eval --watch` is active.
package retention
