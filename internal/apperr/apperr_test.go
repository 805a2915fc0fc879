package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestTable_CodesStatusesAndMessages(t *testing.T) {
	cases := []struct {
		code   Code
		status int
		msg    string
	}{
		{CodeServerError, 500, "Internal server error"},
		{CodeUnauthorized, 401, "Unauthorized - Invalid or missing API key"},
		{CodeForbidden, 403, "Forbidden - Access denied"},
		{CodeNotFound, 404, "Resource not found"},
		{CodeConflict, 409, "Resource already exists"},
		{CodeValidation, 422, "Validation failed"},
		{CodeRateLimited, 429, "Too many requests"},
		{CodeTodoNotFound, 404, "Todo not found"},
		{CodeTodoAlreadyCompleted, 400, "Todo is already completed"},
		{CodeTodoTitleEmpty, 400, "Todo title cannot be empty"},
		{CodeTodoLimitExceeded, 400, "Maximum todo limit reached"},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.code); got != tc.status {
			t.Fatalf("HTTPStatus(%d) = %d; want %d", tc.code, got, tc.status)
		}
		if got := DefaultMessage(tc.code); got != tc.msg {
			t.Fatalf("DefaultMessage(%d) = %q; want %q", tc.code, got, tc.msg)
		}
	}
	// numeric values are part of the wire contract
	if CodeServerError != 2000 || CodeRateLimited != 2006 || CodeTodoNotFound != 3001 || CodeTodoLimitExceeded != 3004 {
		t.Fatalf("taxonomy codes drifted")
	}
}

func TestHTTPStatus_UnknownDefaultsTo400(t *testing.T) {
	for _, c := range []Code{0, 1000, 2999, 9999} {
		if got := HTTPStatus(c); got != http.StatusBadRequest {
			t.Fatalf("HTTPStatus(%d) = %d; want 400", c, got)
		}
	}
	if DefaultMessage(1234) != "" {
		t.Fatalf("unknown code should have empty message")
	}
}

func TestConstructors_Details(t *testing.T) {
	e := TodoNotFound("abc")
	if e.Code != CodeTodoNotFound || e.Details != "Todo with id 'abc' not found" {
		t.Fatalf("TodoNotFound: %+v", e)
	}
	e = TodoLimitExceeded(100, 100)
	if e.Details != "Maximum of 100 todos allowed. Current count: 100" {
		t.Fatalf("TodoLimitExceeded details = %q", e.Details)
	}
	if e.Status() != http.StatusBadRequest {
		t.Fatalf("TodoLimitExceeded status = %d", e.Status())
	}
	if Unauthorized("").Status() != 401 || RateLimited("").Status() != 429 || Conflict("").Status() != 409 {
		t.Fatalf("unexpected statuses")
	}
}

func TestError_StringAndIs(t *testing.T) {
	e := Validation("title cannot be empty")
	if !strings.Contains(e.Error(), "2005") || !strings.Contains(e.Error(), "title cannot be empty") {
		t.Fatalf("Error() = %q", e.Error())
	}
	if got := Forbidden("").Error(); got != "2002 Forbidden - Access denied" {
		t.Fatalf("Error() without details = %q", got)
	}

	wrapped := fmt.Errorf("loading: %w", TodoNotFound("x"))
	if !errors.Is(wrapped, New(CodeTodoNotFound, "")) {
		t.Fatalf("errors.Is should match by code through wrapping")
	}
	if errors.Is(wrapped, New(CodeNotFound, "")) {
		t.Fatalf("errors.Is must not match a different code")
	}
}

func TestFrom_And_CodeOf(t *testing.T) {
	if From(nil) != nil {
		t.Fatalf("From(nil) should be nil")
	}
	if CodeOf(nil) != 0 {
		t.Fatalf("CodeOf(nil) should be 0")
	}

	orig := TodoTitleEmpty("blank")
	if got := From(fmt.Errorf("ctx: %w", orig)); got != orig {
		t.Fatalf("From should unwrap to the original *Error")
	}

	got := From(errors.New("disk on fire"))
	if got.Code != CodeServerError || got.Details != "disk on fire" || got.Message != "Internal server error" {
		t.Fatalf("From(foreign) = %+v", got)
	}
	if CodeOf(errors.New("x")) != CodeServerError {
		t.Fatalf("CodeOf(foreign) should be ServerError")
	}
}

func TestResponse_OmitsUnsetMembers(t *testing.T) {
	b, err := json.Marshal(New(CodeUnauthorized, "").Response())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "details") || strings.Contains(s, "errors") || strings.Contains(s, "null") {
		t.Fatalf("unset members must be omitted: %s", s)
	}

	b, _ = json.Marshal(Validation("").WithFields(map[string]any{"title": "required"}).Response())
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(m["code"].(float64)) != 2005 {
		t.Fatalf("code = %v", m["code"])
	}
	if _, ok := m["details"]; ok {
		t.Fatalf("details should be omitted: %s", b)
	}
	errs, ok := m["errors"].(map[string]any)
	if !ok || errs["title"] != "required" {
		t.Fatalf("errors payload = %v", m["errors"])
	}
}
