package domain

import (
	"encoding/json"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (Todo{}).TableName() != "todos" {
		t.Fatalf("Todo.TableName() = %q; want %q", (Todo{}).TableName(), "todos")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q; want %q", (Idempotency{}).TableName(), "idempotency")
	}
}

func TestTodo_Migration_Index_AndNullUpdatedAt(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Todo{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasTable(&Todo{}) {
		t.Fatalf("expected todos table")
	}
	if !m.HasIndex(&Todo{}, "idx_todos_created") {
		t.Fatalf("expected index idx_todos_created on todos")
	}

	now := time.Now().UTC()
	td := &Todo{ID: "t1", Title: "T", CreatedAt: now}
	if err := db.Create(td).Error; err != nil {
		t.Fatalf("insert todo: %v", err)
	}

	var got Todo
	if err := db.First(&got, "id = ?", "t1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.UpdatedAt != nil {
		t.Fatalf("UpdatedAt must stay NULL until the first mutation, got %v", got.UpdatedAt)
	}
	if got.Description != "" || got.IsCompleted {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestTodo_Touch(t *testing.T) {
	var td Todo
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	td.Touch(at)
	if td.UpdatedAt == nil || !td.UpdatedAt.Equal(at) {
		t.Fatalf("Touch did not set UpdatedAt: %v", td.UpdatedAt)
	}
}

func TestTodo_JSONShape(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	b, err := json.Marshal(Todo{ID: "id", Title: "x", CreatedAt: at})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"id", "title", "description", "is_completed", "created_at", "updated_at"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}
	if len(m) != 6 {
		t.Fatalf("unexpected extra keys: %s", b)
	}
	if m["updated_at"] != nil {
		t.Fatalf("updated_at should be null before first mutation: %s", b)
	}
	if m["created_at"] != "2025-01-02T03:04:05Z" {
		t.Fatalf("created_at should be RFC 3339: %v", m["created_at"])
	}
}
