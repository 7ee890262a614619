package thing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/thing-core/internal/infrastructure/database"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	_, err = db.Exec(`CREATE TABLE things (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("creating things table: %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_SaveAndLoad(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	desc := Description{"name": "Lamp", "type": "onOffLight"}
	if err := repo.Save(ctx, "lamp", desc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(ctx, "lamp")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got["name"] != "Lamp" || got["type"] != "onOffLight" {
		t.Errorf("Load() = %v", got)
	}
}

func TestSQLiteRepository_SaveIsUpsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, "lamp", Description{"name": "v1"}); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if err := repo.Save(ctx, "lamp", Description{"name": "v2"}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List() returned %d rows, want 1", len(all))
	}
	if all["lamp"]["name"] != "v2" {
		t.Errorf("stored name = %v, want v2", all["lamp"]["name"])
	}
}

func TestSQLiteRepository_SaveEmptyID(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.Save(context.Background(), "", Description{"name": "x"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Save() error = %v, want ErrInvalidArgument", err)
	}
}

func TestSQLiteRepository_LoadMissing(t *testing.T) {
	repo := newTestRepository(t)

	if _, err := repo.Load(context.Background(), "ghost"); !errors.Is(err, ErrThingNotFound) {
		t.Errorf("Load() error = %v, want ErrThingNotFound", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Save(ctx, id, Description{"name": id}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d rows, want 3", len(all))
	}
	for _, id := range []string{"a", "b", "c"} {
		if all[id]["name"] != id {
			t.Errorf("List()[%s] = %v", id, all[id])
		}
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, "lamp", Description{"name": "Lamp"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, "lamp"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Load(ctx, "lamp"); !errors.Is(err, ErrThingNotFound) {
		t.Errorf("Load() after delete error = %v, want ErrThingNotFound", err)
	}
	if err := repo.Delete(ctx, "lamp"); !errors.Is(err, ErrThingNotFound) {
		t.Errorf("second Delete() error = %v, want ErrThingNotFound", err)
	}
}

func TestSQLiteRepository_RoundTripThroughThing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	original, err := New("lamp", Description{
		"name": "Lamp",
		"properties": map[string]any{
			"on": map[string]any{"type": "boolean"},
		},
		"floorplanX": 10.0,
		"floorplanY": 20.0,
	}, Options{Store: repo})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := original.SetName(ctx, "Desk Lamp"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}

	stored, err := repo.Load(ctx, "lamp")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	restored, err := New("lamp", stored, Options{})
	if err != nil {
		t.Fatalf("New() from stored description error = %v", err)
	}
	if restored.Name() != "Desk Lamp" {
		t.Errorf("restored name = %q", restored.Name())
	}
	x, y := restored.Coordinates()
	if x == nil || *x != 10 || y == nil || *y != 20 {
		t.Errorf("restored coordinates = %v,%v", x, y)
	}
	props := restored.Describe(nil)["properties"].(map[string]Descriptor)
	if props["on"]["href"] != "/things/lamp/properties/on" {
		t.Errorf("restored property href = %v", props["on"]["href"])
	}
}
