package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createThingsTable hand-builds the gateway's things schema so tests can
// exercise the handle without the embedded migrations.
func createThingsTable(t *testing.T, db *DB) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		CREATE TABLE things (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("creating things table: %v", err)
	}
}

func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "things.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "data", "gateway", "things.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("database directory was not created")
		}
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestDescriptionUpsert(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	createThingsTable(t, db)

	ctx := context.Background()
	upsert := `
		INSERT INTO things (id, description, created_at, updated_at)
		VALUES (?, ?, datetime('now'), datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			updated_at = excluded.updated_at
	`

	if _, err := db.ExecContext(ctx, upsert, "lamp-1", `{"id":"lamp-1","name":"Lamp"}`); err != nil {
		t.Fatalf("first upsert error = %v", err)
	}
	if _, err := db.ExecContext(ctx, upsert, "lamp-1", `{"id":"lamp-1","name":"Desk Lamp"}`); err != nil {
		t.Fatalf("second upsert error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM things").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("row count after double upsert = %d, want 1", count)
	}

	var desc string
	if err := db.QueryRowContext(ctx, "SELECT description FROM things WHERE id = ?", "lamp-1").Scan(&desc); err != nil {
		t.Fatalf("reading description: %v", err)
	}
	if desc != `{"id":"lamp-1","name":"Desk Lamp"}` {
		t.Errorf("stored description = %s, want the second write", desc)
	}
}

func TestBeginTx(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	createThingsTable(t, db)

	ctx := context.Background()
	insert := "INSERT INTO things (id, description, created_at, updated_at) VALUES (?, ?, '', '')"

	t.Run("commit keeps the row", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if _, err := tx.ExecContext(ctx, insert, "kept", "{}"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM things WHERE id = ?", "kept").Scan(&count); err != nil {
			t.Fatalf("SELECT error = %v", err)
		}
		if count != 1 {
			t.Errorf("committed row count = %d, want 1", count)
		}
	})

	t.Run("rollback discards the row", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if _, err := tx.ExecContext(ctx, insert, "discarded", "{}"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM things WHERE id = ?", "discarded").Scan(&count); err != nil {
			t.Fatalf("SELECT error = %v", err)
		}
		if count != 0 {
			t.Errorf("rolled-back row count = %d, want 0", count)
		}
	})
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "things.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}
