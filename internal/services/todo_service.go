// Package services – TodoService
//
// This file implements TodoService, the application-level component that owns
// the lifecycle of todos. It enforces the creation ceiling, runs the
// validation layer, maps repository misses onto TodoNotFound and records
// Idempotency-Key replays for create.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the todo id or idempotency key where applicable.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-todo-api/internal/apperr"
	"github.com/tbourn/go-todo-api/internal/domain"
	"github.com/tbourn/go-todo-api/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxTodos is the creation ceiling used when none is configured.
const DefaultMaxTodos = 100

// TodoRepo defines the repository contract required by TodoService.
// Every method receives the handle to run against, which may be a transaction.
type TodoRepo interface {
	CreateTodo(ctx context.Context, db *gorm.DB, title, description string, createdAt time.Time) (*domain.Todo, error)
	ListTodos(ctx context.Context, db *gorm.DB) ([]domain.Todo, error)
	GetTodo(ctx context.Context, db *gorm.DB, id string) (*domain.Todo, error)
	SaveTodo(ctx context.Context, db *gorm.DB, t *domain.Todo) error
	DeleteTodo(ctx context.Context, db *gorm.DB, id string) error
	CountTodos(ctx context.Context, db *gorm.DB) (int64, error)
	TodosStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)

	GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, key, todoID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// TodoService provides todo operations on top of a TodoRepo.
type TodoService struct {
	DB   *gorm.DB
	Repo TodoRepo

	// MaxTodos caps how many todos may exist; create fails once reached.
	MaxTodos int
	// IdempotencyTTL is how long an Idempotency-Key keeps replaying.
	IdempotencyTTL time.Duration
	// Now is the clock used for created_at/updated_at.
	Now func() time.Time

	// serializes count-and-insert within this process
	createMu sync.Mutex
}

// NewTodoService constructs a TodoService with default ceiling, TTL and clock.
func NewTodoService(db *gorm.DB, r TodoRepo) *TodoService {
	return &TodoService{
		DB:             db,
		Repo:           r,
		MaxTodos:       DefaultMaxTodos,
		IdempotencyTTL: 24 * time.Hour,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *TodoService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *TodoService) limit() int {
	if s.MaxTodos > 0 {
		return s.MaxTodos
	}
	return DefaultMaxTodos
}

func (s *TodoService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/TodoService").Start(ctx, name, trace.WithAttributes(attrs...))
}

// record marks span as failed for anything but expected business errors.
func record(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	if apperr.From(err).Status() >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, err.Error())
	}
}

// List returns every todo, newest first. It never returns a nil slice.
func (s *TodoService) List(ctx context.Context) ([]domain.Todo, error) {
	ctx, span := s.span(ctx, "List")
	defer span.End()

	items, err := s.Repo.ListTodos(ctx, s.DB)
	if err != nil {
		record(span, err)
		return nil, err
	}
	if items == nil {
		items = []domain.Todo{}
	}
	span.SetAttributes(attribute.Int("todo.count", len(items)))
	return items, nil
}

// Get returns the todo with id, or (nil, nil) when it does not exist.
func (s *TodoService) Get(ctx context.Context, id string) (*domain.Todo, error) {
	ctx, span := s.span(ctx, "Get", attribute.String("todo.id", id))
	defer span.End()

	t, err := s.Repo.GetTodo(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		record(span, err)
		return nil, err
	}
	return t, nil
}

// GetOrFail returns the todo with id or a TodoNotFound error naming it.
func (s *TodoService) GetOrFail(ctx context.Context, id string) (*domain.Todo, error) {
	ctx, span := s.span(ctx, "GetOrFail", attribute.String("todo.id", id))
	defer span.End()

	t, err := s.getOrFail(ctx, s.DB, id)
	record(span, err)
	return t, err
}

func (s *TodoService) getOrFail(ctx context.Context, db *gorm.DB, id string) (*domain.Todo, error) {
	t, err := s.Repo.GetTodo(ctx, db, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return t, nil
}

// Create enforces the ceiling, validates input and inserts a new todo. The
// count and the insert run in one transaction.
func (s *TodoService) Create(ctx context.Context, title, description string) (*domain.Todo, error) {
	ctx, span := s.span(ctx, "Create")
	defer span.End()

	t, _, err := s.create(ctx, "", title, description)
	record(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("todo.id", t.ID))
	}
	return t, err
}

// CreateIdempotent behaves like Create, but when key was already used within
// IdempotencyTTL it returns the originally created todo with replayed=true and
// performs no insert. A key whose todo has since been deleted yields Conflict.
func (s *TodoService) CreateIdempotent(ctx context.Context, key, title, description string) (t *domain.Todo, replayed bool, err error) {
	ctx, span := s.span(ctx, "CreateIdempotent", attribute.String("idempotency.key", key))
	defer span.End()

	t, replayed, err = s.create(ctx, key, title, description)
	record(span, err)
	span.SetAttributes(attribute.Bool("idempotency.replayed", replayed))
	return t, replayed, err
}

func (s *TodoService) create(ctx context.Context, key, title, description string) (*domain.Todo, bool, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	var (
		out      *domain.Todo
		replayed bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != "" {
			prev, err := s.replay(ctx, tx, key)
			if err != nil {
				return err
			}
			if prev != nil {
				out, replayed = prev, true
				return nil
			}
		}

		count, err := s.Repo.CountTodos(ctx, tx)
		if err != nil {
			return err
		}
		if ceiling := s.limit(); count >= int64(ceiling) {
			return apperr.TodoLimitExceeded(ceiling, count)
		}

		title, description, err := ValidateCreate(title, description)
		if err != nil {
			return err
		}

		t, err := s.Repo.CreateTodo(ctx, tx, title, description, s.now())
		if err != nil {
			return err
		}
		if key != "" {
			if _, err := s.Repo.CreateIdempotency(ctx, tx, key, t.ID, http.StatusCreated, s.IdempotencyTTL); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return apperr.Conflict(fmt.Sprintf("Idempotency-Key '%s' is already in use", key))
				}
				return fmt.Errorf("recording idempotency key: %w", err)
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, replayed, nil
}

// Replay returns the todo previously created under key, or nil when the key
// is unknown or expired. A key whose todo no longer exists yields Conflict.
func (s *TodoService) Replay(ctx context.Context, key string) (*domain.Todo, error) {
	ctx, span := s.span(ctx, "Replay", attribute.String("idempotency.key", key))
	defer span.End()

	t, err := s.replay(ctx, s.DB, key)
	record(span, err)
	return t, err
}

func (s *TodoService) replay(ctx context.Context, db *gorm.DB, key string) (*domain.Todo, error) {
	rec, err := s.Repo.GetIdempotency(ctx, db, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := s.Repo.GetTodo(ctx, db, rec.TodoID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.Conflict(fmt.Sprintf("Idempotency-Key '%s' refers to todo '%s' which no longer exists", key, rec.TodoID))
	}
	return t, err
}

// Remember records that key produced todoID for IdempotencyTTL. A live
// record for the same key yields Conflict.
func (s *TodoService) Remember(ctx context.Context, key, todoID string, status int) error {
	ctx, span := s.span(ctx, "Remember", attribute.String("idempotency.key", key), attribute.String("todo.id", todoID))
	defer span.End()

	_, err := s.Repo.CreateIdempotency(ctx, s.DB, key, todoID, status, s.IdempotencyTTL)
	if errors.Is(err, repo.ErrDuplicate) {
		err = apperr.Conflict(fmt.Sprintf("Idempotency-Key '%s' is already in use", key))
	}
	record(span, err)
	return err
}

// Update validates p and applies the supplied fields to the todo with id,
// refreshing updated_at.
func (s *TodoService) Update(ctx context.Context, id string, p TodoPatch) (*domain.Todo, error) {
	ctx, span := s.span(ctx, "Update", attribute.String("todo.id", id))
	defer span.End()

	p, err := ValidateUpdate(p)
	if err != nil {
		record(span, err)
		return nil, err
	}

	t, err := s.mutate(ctx, id, p.Apply)
	record(span, err)
	return t, err
}

// Toggle flips is_completed on the todo with id and refreshes updated_at.
func (s *TodoService) Toggle(ctx context.Context, id string) (*domain.Todo, error) {
	ctx, span := s.span(ctx, "Toggle", attribute.String("todo.id", id))
	defer span.End()

	t, err := s.mutate(ctx, id, func(t *domain.Todo) { t.IsCompleted = !t.IsCompleted })
	if err == nil {
		span.SetAttributes(attribute.Bool("todo.is_completed", t.IsCompleted))
	}
	record(span, err)
	return t, err
}

// mutate loads, changes, touches and saves one todo inside a transaction.
func (s *TodoService) mutate(ctx context.Context, id string, change func(*domain.Todo)) (*domain.Todo, error) {
	var out *domain.Todo
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.getOrFail(ctx, tx, id)
		if err != nil {
			return err
		}
		change(t)
		t.Touch(s.now())
		if err := s.Repo.SaveTodo(ctx, tx, t); err != nil {
			return notFound(err, id)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete permanently removes the todo with id.
func (s *TodoService) Delete(ctx context.Context, id string) error {
	ctx, span := s.span(ctx, "Delete", attribute.String("todo.id", id))
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getOrFail(ctx, tx, id); err != nil {
			return err
		}
		return notFound(s.Repo.DeleteTodo(ctx, tx, id), id)
	})
	record(span, err)
	return err
}

// Count returns the number of stored todos.
func (s *TodoService) Count(ctx context.Context) (int64, error) {
	ctx, span := s.span(ctx, "Count")
	defer span.End()

	n, err := s.Repo.CountTodos(ctx, s.DB)
	record(span, err)
	return n, err
}

// Stats returns the todo count and the latest modification instant, used
// for list ETags.
func (s *TodoService) Stats(ctx context.Context) (int64, *time.Time, error) {
	ctx, span := s.span(ctx, "Stats")
	defer span.End()

	n, last, err := s.Repo.TodosStats(ctx, s.DB)
	record(span, err)
	return n, last, err
}
