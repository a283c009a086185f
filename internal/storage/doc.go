// Package storage is the vault's persistent store. It owns the schema
// (consents, location_data, browsing_data, sync_log and the metadata
// key/value slots) and every durable read and write.
//
// A Store is opened over SQLite (modernc.org/sqlite, the default) or
// PostgreSQL (pgx stdlib driver). Initialize applies the embedded goose
// migrations and may be called any number of times.
//
// Every error returned by a Store wraps common.ErrStorageFailure:
//
//	if errors.Is(err, common.ErrStorageFailure) { ... }
//
// Multi-row writes (MarkLocationSynced, MarkBrowsingSynced, ClearAll) run in
// a single transaction and either fully apply or not at all.
package storage
