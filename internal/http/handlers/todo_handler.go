// Todo HTTP handlers.
//
// This file exposes REST endpoints for todo resources:
//   - GET    /todos/              (list, ETag support)
//   - POST   /todos/              (create, Idempotency-Key support)
//   - GET    /todos/{id}          (fetch)
//   - PUT    /todos/{id}          (partial update)
//   - DELETE /todos/{id}          (delete)
//   - PATCH  /todos/{id}/toggle   (flip completion)
//
// Handlers are transport-thin: they decode input, call TodoService and
// translate results into HTTP responses. The API-key gate runs before any of
// them.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-todo-api/internal/domain"
	"github.com/tbourn/go-todo-api/internal/http/middleware"
	"github.com/tbourn/go-todo-api/internal/services"
)

// HeaderReplayed marks a create response served from an earlier request with
// the same Idempotency-Key.
const HeaderReplayed = "Idempotent-Replayed"

// TodoService defines the todo operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TodoService interface {
	List(ctx context.Context) ([]domain.Todo, error)
	GetOrFail(ctx context.Context, id string) (*domain.Todo, error)
	Create(ctx context.Context, title, description string) (*domain.Todo, error)
	CreateIdempotent(ctx context.Context, key, title, description string) (*domain.Todo, bool, error)
	Update(ctx context.Context, id string, p services.TodoPatch) (*domain.Todo, error)
	Toggle(ctx context.Context, id string) (*domain.Todo, error)
	Delete(ctx context.Context, id string) error
	// Stats returns the count and latest modification instant for ETags.
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// Handlers groups the todo endpoints.
type Handlers struct {
	todoSvc TodoService
}

// New constructs a Handlers instance bound to svc.
func New(svc TodoService) *Handlers {
	return &Handlers{todoSvc: svc}
}

//
// DTOs
//

// CreateTodoRequest is the JSON payload for creating a todo.
type CreateTodoRequest struct {
	// Title is required and must not be blank.
	Title *string `json:"title" binding:"required" example:"Buy milk"`
	// Description is optional; null and absent both mean "".
	Description *string `json:"description" example:"2 litres, semi-skimmed"`
}

// UpdateTodoRequest is the JSON payload for a partial update. Absent and null
// fields are left unchanged.
type UpdateTodoRequest struct {
	Title       *string `json:"title" example:"Buy oat milk"`
	Description *string `json:"description" example:""`
	IsCompleted *bool   `json:"is_completed" example:"true"`
}

func (r UpdateTodoRequest) patch() services.TodoPatch {
	return services.TodoPatch{Title: r.Title, Description: r.Description, IsCompleted: r.IsCompleted}
}

// listETag derives a weak validator from the todo count and the latest
// modification instant.
func listETag(count int64, last *time.Time) string {
	var ts int64
	if last != nil {
		ts = last.UnixNano()
	}
	return fmt.Sprintf(`W/"todos:%d:%d"`, count, ts)
}

//
// Handlers
//

// ListTodos godoc
// @ID          listTodos
// @Summary     List todos
// @Description Returns every todo, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Todos
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"todos:3:1700000000000000000\")
//
// @Success     200  {array}  domain.Todo
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} apperr.Response "Missing or invalid API key"
// @Failure     500  {object} apperr.Response "Internal error"
// @Router      /todos/ [get]
func (h *Handlers) ListTodos(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, last, err := h.todoSvc.Stats(ctx); err == nil {
		etag := listETag(count, last)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.todoSvc.List(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateTodo godoc
// @ID          createTodo
// @Summary     Create a todo
// @Description Creates a todo. Fails with 3004 once the configured ceiling is reached.
// @Description A repeated Idempotency-Key returns the originally created todo.
// @Tags        Todos
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       Idempotency-Key  header  string  false "Deduplicates retries"  example(3f1c2b7e-create-1)
// @Param       body             body    handlers.CreateTodoRequest  true  "Create todo payload"
//
// @Success     201  {object} domain.Todo
// @Header      201  {string} Idempotent-Replayed "true when served from an earlier request"
// @Failure     400  {object} apperr.Response "Todo limit reached"
// @Failure     401  {object} apperr.Response "Missing or invalid API key"
// @Failure     409  {object} apperr.Response "Idempotency-Key refers to a deleted todo"
// @Failure     422  {object} apperr.Response "Validation failed"
// @Failure     429  {object} apperr.Response "Too many requests"
// @Failure     500  {object} apperr.Response "Internal error"
// @Router      /todos/ [post]
func (h *Handlers) CreateTodo(c *gin.Context) {
	var req CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}
	var desc string
	if req.Description != nil {
		desc = *req.Description
	}

	ctx := c.Request.Context()
	if key, found := middleware.GetIdempotencyKey(c); found {
		t, replayed, err := h.todoSvc.CreateIdempotent(ctx, key, *req.Title, desc)
		if err != nil {
			fail(c, err)
			return
		}
		if replayed {
			c.Header(HeaderReplayed, "true")
		}
		ok(c, http.StatusCreated, t)
		return
	}

	t, err := h.todoSvc.Create(ctx, *req.Title, desc)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

// GetTodo godoc
// @ID          getTodo
// @Summary     Get a todo
// @Tags        Todos
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       id  path  string  true  "Todo ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Todo
// @Failure     401  {object} apperr.Response "Missing or invalid API key"
// @Failure     404  {object} apperr.Response "Todo not found"
// @Failure     500  {object} apperr.Response "Internal error"
// @Router      /todos/{id} [get]
func (h *Handlers) GetTodo(c *gin.Context) {
	t, err := h.todoSvc.GetOrFail(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdateTodo godoc
// @ID          updateTodo
// @Summary     Update a todo
// @Description Applies the supplied fields only. A supplied title must not be blank.
// @Tags        Todos
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       id    path  string  true  "Todo ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateTodoRequest  true  "Fields to change"
//
// @Success     200  {object} domain.Todo
// @Failure     400  {object} apperr.Response "Title empty"
// @Failure     401  {object} apperr.Response "Missing or invalid API key"
// @Failure     404  {object} apperr.Response "Todo not found"
// @Failure     422  {object} apperr.Response "Validation failed"
// @Failure     500  {object} apperr.Response "Internal error"
// @Router      /todos/{id} [put]
func (h *Handlers) UpdateTodo(c *gin.Context) {
	var req UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	t, err := h.todoSvc.Update(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// ToggleTodo godoc
// @ID          toggleTodo
// @Summary     Toggle completion
// @Description Flips is_completed and refreshes updated_at.
// @Tags        Todos
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       id  path  string  true  "Todo ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Todo
// @Failure     401  {object} apperr.Response "Missing or invalid API key"
// @Failure     404  {object} apperr.Response "Todo not found"
// @Failure     500  {object} apperr.Response "Internal error"
// @Router      /todos/{id}/toggle [patch]
func (h *Handlers) ToggleTodo(c *gin.Context) {
	t, err := h.todoSvc.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// DeleteTodo godoc
// @ID          deleteTodo
// @Summary     Delete a todo
// @Tags        Todos
// @Security    ApiKeyAuth
//
// @Param       id  path  string  true  "Todo ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} apperr.Response "Missing or invalid API key"
// @Failure     404  {object} apperr.Response "Todo not found"
// @Failure     500  {object} apperr.Response "Internal error"
// @Router      /todos/{id} [delete]
func (h *Handlers) DeleteTodo(c *gin.Context) {
	if err := h.todoSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}
