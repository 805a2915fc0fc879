package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-todo-api/internal/domain"
)

func newTodoRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("todo_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateTodo_Error_NoTable(t *testing.T) {
	db := newTodoRepoDB(t /* no migrations */)
	todo, err := CreateTodo(context.Background(), db, "t", "", time.Now())
	if err == nil || todo != nil {
		t.Fatalf("expected error creating without table, got todo=%v err=%v", todo, err)
	}
}

func TestCreateTodo_Success_PersistsAndSetsFields(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))

	todo, err := CreateTodo(context.Background(), db, "Buy milk", "2 litres", at)
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if todo.ID == "" || todo.Title != "Buy milk" || todo.Description != "2 litres" || todo.IsCompleted {
		t.Fatalf("unexpected Todo fields: %+v", todo)
	}
	if !todo.CreatedAt.Equal(at) || todo.CreatedAt.Location() != time.UTC {
		t.Fatalf("CreatedAt should be the given instant in UTC, got %v", todo.CreatedAt)
	}
	if todo.UpdatedAt != nil {
		t.Fatalf("UpdatedAt should be nil on creation, got %v", todo.UpdatedAt)
	}

	got, err := GetTodo(context.Background(), db, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.Title != todo.Title || got.Description != todo.Description || !got.CreatedAt.Equal(todo.CreatedAt) || got.UpdatedAt != nil {
		t.Fatalf("round-trip mismatch: created=%+v fetched=%+v", todo, got)
	}
}

func TestCreateTodo_UniqueIDs(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		todo, err := CreateTodo(context.Background(), db, "t", "", time.Now())
		if err != nil {
			t.Fatalf("CreateTodo #%d: %v", i, err)
		}
		if seen[todo.ID] {
			t.Fatalf("duplicate id %q", todo.ID)
		}
		seen[todo.ID] = true
	}
}

func TestListTodos_EmptyIsNonNil(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	out, err := ListTodos(context.Background(), db)
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestListTodos_NewestFirst(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		if _, err := CreateTodo(context.Background(), db, title, "", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("seed %s: %v", title, err)
		}
	}

	out, err := ListTodos(context.Background(), db)
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	if len(out) != 3 || out[0].Title != "third" || out[1].Title != "second" || out[2].Title != "first" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestListTodos_Error_NoTable(t *testing.T) {
	db := newTodoRepoDB(t)
	if _, err := ListTodos(context.Background(), db); err == nil {
		t.Fatalf("expected error listing without table")
	}
}

func TestGetTodo_NotFound(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	got, err := GetTodo(context.Background(), db, "missing")
	if got != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound), got (%v, %v)", got, err)
	}
}

func TestSaveTodo_WritesZeroValues(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	ctx := context.Background()

	todo, err := CreateTodo(ctx, db, "title", "desc", time.Now())
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}

	// complete, then clear description
	todo.IsCompleted = true
	todo.Touch(time.Now())
	if err := SaveTodo(ctx, db, todo); err != nil {
		t.Fatalf("SaveTodo complete: %v", err)
	}
	todo.IsCompleted = false
	todo.Description = ""
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	todo.Touch(at)
	if err := SaveTodo(ctx, db, todo); err != nil {
		t.Fatalf("SaveTodo reset: %v", err)
	}

	got, err := GetTodo(ctx, db, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.IsCompleted || got.Description != "" || got.Title != "title" {
		t.Fatalf("zero values not persisted: %+v", got)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(at) {
		t.Fatalf("UpdatedAt = %v; want %v", got.UpdatedAt, at)
	}
}

func TestSaveTodo_NotFound(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	err := SaveTodo(context.Background(), db, &domain.Todo{ID: "ghost", Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTodo_RemovesRow_ThenNotFound(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	ctx := context.Background()

	todo, err := CreateTodo(ctx, db, "x", "", time.Now())
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if err := DeleteTodo(ctx, db, todo.ID); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	if _, err := GetTodo(ctx, db, todo.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := DeleteTodo(ctx, db, todo.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}

	// physical delete: the row is gone even when querying raw
	var n int64
	if err := db.Raw("SELECT COUNT(*) FROM todos").Scan(&n).Error; err != nil || n != 0 {
		t.Fatalf("expected no rows, got n=%d err=%v", n, err)
	}
}

func TestCountTodos(t *testing.T) {
	db := newTodoRepoDB(t, &domain.Todo{})
	ctx := context.Background()

	if n, err := CountTodos(ctx, db); err != nil || n != 0 {
		t.Fatalf("CountTodos empty = (%d, %v)", n, err)
	}
	for i := 0; i < 3; i++ {
		if _, err := CreateTodo(ctx, db, "t", "", time.Now()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if n, err := CountTodos(ctx, db); err != nil || n != 3 {
		t.Fatalf("CountTodos = (%d, %v); want 3", n, err)
	}
}

func TestCountTodos_Error_NoTable(t *testing.T) {
	db := newTodoRepoDB(t)
	if _, err := CountTodos(context.Background(), db); err == nil {
		t.Fatalf("expected error counting without table")
	}
}
