// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-todo-api/internal/domain"
)

// TodosStats returns the total number of todos and the most recent
// modification instant across all of them (the greater of the newest
// created_at and the newest non-null updated_at).
//
// When there are no todos, the returned count is 0 and lastModified is nil.
func TodosStats(ctx context.Context, db *gorm.DB) (count int64, lastModified *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Todo{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest created_at / updated_at (avoid MAX() -> TEXT in SQLite)
	var created struct {
		CreatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Todo{}).
		Select("created_at").Order("created_at DESC").Limit(1).
		Scan(&created).Error; err != nil {
		return 0, nil, err
	}
	latest := created.CreatedAt

	var updated struct {
		UpdatedAt *time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Todo{}).
		Select("updated_at").Where("updated_at IS NOT NULL").Order("updated_at DESC").Limit(1).
		Scan(&updated).Error; err != nil {
		return 0, nil, err
	}
	if updated.UpdatedAt != nil && updated.UpdatedAt.After(latest) {
		latest = *updated.UpdatedAt
	}
	return count, &latest, nil
}
