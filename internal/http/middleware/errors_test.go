package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-todo-api/internal/apperr"
)

func TestAbortWithError_WritesEnvelopeAndStopsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var code apperr.Code
	var seen bool
	r.Use(func(c *gin.Context) {
		c.Next()
		code, seen = ErrorCode(c)
	})
	r.Use(func(c *gin.Context) {
		AbortWithError(c, apperr.TodoLimitExceeded(100, 100))
	})
	r.GET("/todos", func(c *gin.Context) {
		t.Fatalf("handler must not run after abort")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
	var body apperr.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Code != 3004 || body.Message != "Maximum todo limit reached" ||
		body.Details != "Maximum of 100 todos allowed. Current count: 100" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if !seen || code != apperr.CodeTodoLimitExceeded {
		t.Fatalf("ErrorCode = %v, %v", code, seen)
	}
}

func TestAbortWithError_FieldsAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/todos", func(c *gin.Context) {
		AbortWithError(c, apperr.Validation("").WithFields(map[string]any{"title": "Field required"}))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/todos", nil))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d; want 422", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := body["details"]; ok {
		t.Fatalf("details must be omitted: %v", body)
	}
	errs, _ := body["errors"].(map[string]any)
	if errs["title"] != "Field required" {
		t.Fatalf("errors = %v", body["errors"])
	}
}

func TestErrorCode_Absent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := ErrorCode(c); ok {
		t.Fatalf("expected no error code on a fresh context")
	}
	c.Set(ctxKeyErrorCode, "3001")
	if _, ok := ErrorCode(c); ok {
		t.Fatalf("non-int value must read as absent")
	}
}
