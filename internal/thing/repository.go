package thing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence operations for thing descriptions.
// It extends the Store contract consumed by individual things with the
// load/list/delete operations the registry needs.
//
// This abstraction allows different implementations (SQLite, mock) and
// enables unit testing without database dependencies.
type Repository interface {
	Store

	// Load retrieves a stored description by thing ID.
	// Returns ErrThingNotFound if no row exists.
	Load(ctx context.Context, id string) (Description, error)

	// List retrieves all stored descriptions keyed by thing ID.
	List(ctx context.Context) (map[string]Description, error)

	// Delete removes a stored description.
	// Returns ErrThingNotFound if no row exists.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite. Descriptions are
// stored as a JSON column keyed by thing ID.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the things
// table migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts a thing's full description. The operation is idempotent:
// saving the same description twice leaves one row.
func (r *SQLiteRepository) Save(ctx context.Context, id string, desc Description) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}

	payload, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshaling description: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO things (id, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, id, string(payload), now, now); err != nil {
		return fmt.Errorf("saving thing %s: %w", id, err)
	}
	return nil
}

// Load retrieves a stored description by thing ID.
func (r *SQLiteRepository) Load(ctx context.Context, id string) (Description, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT description FROM things WHERE id = ?", id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrThingNotFound, id)
		}
		return nil, fmt.Errorf("loading thing %s: %w", id, err)
	}

	return unmarshalDescription(id, payload)
}

// List retrieves all stored descriptions keyed by thing ID.
func (r *SQLiteRepository) List(ctx context.Context) (map[string]Description, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, description FROM things ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing things: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only result set

	out := make(map[string]Description)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scanning thing row: %w", err)
		}
		desc, err := unmarshalDescription(id, payload)
		if err != nil {
			return nil, err
		}
		out[id] = desc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating things: %w", err)
	}
	return out, nil
}

// Delete removes a stored description.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM things WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting thing %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrThingNotFound, id)
	}
	return nil
}

func unmarshalDescription(id, payload string) (Description, error) {
	var desc Description
	if err := json.Unmarshal([]byte(payload), &desc); err != nil {
		return nil, fmt.Errorf("unmarshaling thing %s: %w", id, err)
	}
	return desc, nil
}
