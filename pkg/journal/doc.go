// Package journal records rule evaluations for later inspection.
//
// Every evaluation made through the CLI can be appended to the journal as an
// Entry: the rule, its value and unit, the situation it was computed under
// and the engine that computed it. Entries are written asynchronously by a
// Recorder so that evaluation never waits on storage.
//
// # Storage
//
// Storage backends live in the storage subpackage: SQLite for durable
// journals and an in-memory backend for tests and short-lived processes.
//
//	store, err := storage.NewSQLiteStorage(storage.DefaultSQLiteConfig("journal.db"), logger)
//	rec := journal.NewRecorder(store, nil, logger, collector)
//	defer rec.Close()
//
//	rec.Record(journal.NewEntry("salaire net", 2340.0, "€/mois", "2340 €/mois", nil))
//
// # Querying
//
// Query filters entries by rule, status and time range:
//
//	since := time.Now().Add(-24 * time.Hour)
//	entries, err := store.Query(ctx, &journal.Query{Rule: "salaire net", Since: &since})
//
// # Retention
//
// The retention subpackage prunes entries by age and count, optionally
// archiving them as JSON first, on demand or on a cron schedule.
package journal
