// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Todo model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - When a todo is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Usage:
//
//	todo, err := repo.GetTodo(ctx, db, id)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // handle missing
//	} else if err != nil {
//	    // handle DB failure
//	}
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-todo-api/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateTodo inserts a new, not yet completed Todo with a random UUID and
// the given creation time (stored in UTC).
func CreateTodo(ctx context.Context, db *gorm.DB, title, description string, createdAt time.Time) (*domain.Todo, error) {
	t := &domain.Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		IsCompleted: false,
		CreatedAt:   createdAt.UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// ListTodos returns every todo, newest first. The result is never nil.
func ListTodos(ctx context.Context, db *gorm.DB) ([]domain.Todo, error) {
	out := []domain.Todo{}
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("id").
		Find(&out).Error
	return out, err
}

// GetTodo fetches a single todo by id, or ErrNotFound.
func GetTodo(ctx context.Context, db *gorm.DB, id string) (*domain.Todo, error) {
	var t domain.Todo
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTodo writes the mutable columns of t back to its row. Zero values are
// written too, so clearing a description or un-completing a todo persists.
// It returns ErrNotFound when the row no longer exists.
func SaveTodo(ctx context.Context, db *gorm.DB, t *domain.Todo) error {
	res := db.WithContext(ctx).
		Model(&domain.Todo{}).
		Where("id = ?", t.ID).
		Select("title", "description", "is_completed", "updated_at").
		Updates(map[string]any{
			"title":        t.Title,
			"description":  t.Description,
			"is_completed": t.IsCompleted,
			"updated_at":   t.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTodo physically removes the todo with id, or returns ErrNotFound.
func DeleteTodo(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Todo{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTodos returns the number of stored todos.
func CountTodos(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Todo{}).Count(&total).Error
	return total, err
}
