// Package domain defines the persistence models for todos. These types are
// mapped with GORM and form the core data layer of the todo API.
package domain

import "time"

// Todo is a single task item.
//
// Fields:
//   - ID: UUID primary key (char(36)), assigned at creation.
//   - Title: non-blank, trimmed text.
//   - Description: optional free text, empty when not supplied.
//   - IsCompleted: completion flag, false on creation.
//   - CreatedAt: set once at creation; indexed for newest-first listing.
//   - UpdatedAt: nil until the first update or toggle.
//
// Deletion is physical; there is no soft-delete column.
type Todo struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	Title       string     `json:"title"        gorm:"type:varchar(255);not null"`
	Description string     `json:"description"  gorm:"type:text;not null;default:''"`
	IsCompleted bool       `json:"is_completed" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at"   gorm:"not null;index:idx_todos_created"`
	UpdatedAt   *time.Time `json:"updated_at"   gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for Todo.
func (Todo) TableName() string { return "todos" }

// Touch marks the todo as modified at t.
func (t *Todo) Touch(at time.Time) {
	ts := at
	t.UpdatedAt = &ts
}
