// Package services defines the business logic for todos. This file maps
// persistence errors onto the application error taxonomy so that callers
// only ever see *apperr.Error values for predictable failures.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-todo-api/internal/apperr"
	"github.com/tbourn/go-todo-api/internal/repo"
)

// Validation messages shared by create and update.
const (
	msgTitleEmpty      = "Title cannot be empty"
	msgTitleWhitespace = "Title must not be empty or whitespace"
)

// notFound maps a repository miss for id onto TodoNotFound and passes every
// other error through unchanged.
func notFound(err error, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.TodoNotFound(id)
	}
	return err
}
