// Package database owns the gateway's SQLite handle.
//
// The database holds a single domain table: things, keyed by id with the
// full JSON description as a column. The in-memory registry is the
// runtime representation; this file is the durable copy that every
// mutating setter re-saves.
//
// Schema changes ship as embedded up/down SQL pairs applied by Migrate
// at startup, each step in its own transaction, tracked in
// schema_migrations.
//
// The pool is pinned to one connection (SQLite single-writer model);
// WAL mode keeps description reads from blocking a save in flight, and
// the busy timeout absorbs brief lock contention instead of surfacing
// "database is locked" errors.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
