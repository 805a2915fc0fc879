package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-todo-api/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestTodosStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := TodosStats(context.Background(), db); err == nil {
		t.Fatalf("expected error due to missing todos table")
	}
}

func TestTodosStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Todo{})
	count, last, err := TodosStats(context.Background(), db)
	if err != nil {
		t.Fatalf("TodosStats error: %v", err)
	}
	if count != 0 || last != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, last)
	}
}

func TestTodosStats_CreatedOnly(t *testing.T) {
	db := newTestDB(t, &domain.Todo{})
	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)

	for _, at := range []time.Time{t1, t2} {
		if _, err := CreateTodo(context.Background(), db, "x", "", at); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, last, err := TodosStats(context.Background(), db)
	if err != nil {
		t.Fatalf("TodosStats error: %v", err)
	}
	if count != 2 || last == nil || !last.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, last)
	}
}

func TestTodosStats_UpdateMovesLastModified(t *testing.T) {
	db := newTestDB(t, &domain.Todo{})
	ctx := context.Background()
	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	t3 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	old, err := CreateTodo(ctx, db, "old", "", t1)
	if err != nil {
		t.Fatalf("seed old: %v", err)
	}
	if _, err := CreateTodo(ctx, db, "new", "", t2); err != nil {
		t.Fatalf("seed new: %v", err)
	}

	old.Touch(t3)
	if err := SaveTodo(ctx, db, old); err != nil {
		t.Fatalf("SaveTodo: %v", err)
	}

	_, last, err := TodosStats(ctx, db)
	if err != nil {
		t.Fatalf("TodosStats error: %v", err)
	}
	if last == nil || !last.Equal(t3) {
		t.Fatalf("expected last modified %v, got %v", t3, last)
	}
}

// Force the follow-up select to fail by renaming the column.
func TestTodosStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, &domain.Todo{})
	if _, err := CreateTodo(context.Background(), db, "x", "", time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Exec(`ALTER TABLE todos RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}
	if _, _, err := TodosStats(context.Background(), db); err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}
