package services

import (
	"errors"
	"testing"

	"github.com/tbourn/go-todo-api/internal/apperr"
	"github.com/tbourn/go-todo-api/internal/domain"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestValidateCreate_TrimsAndNormalizes(t *testing.T) {
	title, desc, err := ValidateCreate("  Buy milk \n", "\t2 litres  ")
	if err != nil {
		t.Fatalf("ValidateCreate: %v", err)
	}
	if title != "Buy milk" || desc != "2 litres" {
		t.Fatalf("got (%q, %q)", title, desc)
	}

	// decomposed "é" is composed
	title, _, err = ValidateCreate("Cafe\u0301", "")
	if err != nil {
		t.Fatalf("ValidateCreate NFC: %v", err)
	}
	if title != "Caf\u00e9" {
		t.Fatalf("expected NFC-composed title, got %q", title)
	}
}

func TestValidateCreate_BlankTitle_ValidationFailed(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, _, err := ValidateCreate(in, "x")
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			t.Fatalf("ValidateCreate(%q) expected *apperr.Error, got %v", in, err)
		}
		if ae.Code != apperr.CodeValidation || ae.Status() != 422 {
			t.Fatalf("ValidateCreate(%q) code=%d status=%d", in, ae.Code, ae.Status())
		}
		if ae.Fields["title"] != "Title cannot be empty" {
			t.Fatalf("expected title field error, got %v", ae.Fields)
		}
	}
}

func TestValidateUpdate_BlankTitle_TodoTitleEmpty(t *testing.T) {
	_, err := ValidateUpdate(TodoPatch{Title: strp("   ")})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Code != apperr.CodeTodoTitleEmpty {
		t.Fatalf("expected TodoTitleEmpty, got %v", err)
	}
	if ae.Details != "Title must not be empty or whitespace" || ae.Status() != 400 {
		t.Fatalf("unexpected error: %+v", ae)
	}
}

func TestValidateUpdate_PartialSlots(t *testing.T) {
	p, err := ValidateUpdate(TodoPatch{Description: strp("  new  ")})
	if err != nil {
		t.Fatalf("ValidateUpdate: %v", err)
	}
	if p.Title != nil || p.IsCompleted != nil || p.Description == nil || *p.Description != "new" {
		t.Fatalf("unexpected patch: %+v", p)
	}

	p, err = ValidateUpdate(TodoPatch{Title: strp(" t "), IsCompleted: boolp(true)})
	if err != nil {
		t.Fatalf("ValidateUpdate: %v", err)
	}
	if *p.Title != "t" || !*p.IsCompleted || p.Description != nil {
		t.Fatalf("unexpected patch: %+v", p)
	}

	// an explicitly empty description is allowed and clears the field
	p, err = ValidateUpdate(TodoPatch{Description: strp("   ")})
	if err != nil || p.Description == nil || *p.Description != "" {
		t.Fatalf("empty description should be accepted, got %+v err=%v", p, err)
	}
}

func TestTodoPatch_ApplyAndEmpty(t *testing.T) {
	if !(TodoPatch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}

	td := &domain.Todo{Title: "a", Description: "b", IsCompleted: false}
	TodoPatch{Description: strp("x")}.Apply(td)
	if td.Title != "a" || td.Description != "x" || td.IsCompleted {
		t.Fatalf("description-only patch changed other fields: %+v", td)
	}
	TodoPatch{Title: strp("z"), IsCompleted: boolp(true)}.Apply(td)
	if td.Title != "z" || td.Description != "x" || !td.IsCompleted {
		t.Fatalf("unexpected todo: %+v", td)
	}
	if td.UpdatedAt != nil {
		t.Fatalf("Apply must not touch UpdatedAt")
	}
}
