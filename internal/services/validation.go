package services

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-todo-api/internal/apperr"
	"github.com/tbourn/go-todo-api/internal/domain"
)

// TodoPatch is a partial update. A nil slot means "leave unchanged".
type TodoPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"is_completed"`
}

// Empty reports whether no field is supplied.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil
}

// Apply copies every supplied slot onto t. It does not touch UpdatedAt.
func (p TodoPatch) Apply(t *domain.Todo) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
}

// ValidateCreate normalizes title and description and rejects a blank title
// with a ValidationFailed error carrying a field breakdown.
func ValidateCreate(title, description string) (string, string, error) {
	title = normalizeText(title)
	if title == "" {
		return "", "", apperr.Validation("").WithFields(map[string]any{"title": msgTitleEmpty})
	}
	return title, normalizeText(description), nil
}

// ValidateUpdate normalizes the supplied text slots. A supplied title that is
// blank after trimming yields TodoTitleEmpty.
func ValidateUpdate(p TodoPatch) (TodoPatch, error) {
	out := TodoPatch{IsCompleted: p.IsCompleted}
	if p.Title != nil {
		title := normalizeText(*p.Title)
		if title == "" {
			return TodoPatch{}, apperr.TodoTitleEmpty(msgTitleWhitespace)
		}
		out.Title = &title
	}
	if p.Description != nil {
		desc := normalizeText(*p.Description)
		out.Description = &desc
	}
	return out, nil
}

// normalizeText trims surrounding whitespace and composes to Unicode NFC.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
