// Package handlers – request decoding errors.
//
// Schema failures (malformed JSON, wrong field types, missing required
// fields) are reported as ValidationFailed (2005) with a field → message
// breakdown under "errors". Semantic checks such as a blank title are left to
// the services layer.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-todo-api/internal/apperr"
)

// bodyField keys decode failures that cannot be pinned to a single field.
const bodyField = "body"

func init() {
	// Report JSON names ("title") rather than Go names ("Title").
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// bindError converts a ShouldBindJSON failure into ValidationFailed.
func bindError(err error) *apperr.Error {
	fields := map[string]any{}

	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = bodyField
		}
		fields[field] = "must be of type " + jsonType(typeErr.Type)
	case errors.As(err, &synErr):
		fields[bodyField] = "malformed JSON: " + synErr.Error()
	case errors.Is(err, io.EOF):
		fields[bodyField] = "request body is required"
	default:
		fields[bodyField] = err.Error()
	}
	return apperr.Validation("").WithFields(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	default:
		return "failed on '" + fe.Tag() + "'"
	}
}

// jsonType names t the way a JSON client would.
func jsonType(t reflect.Type) string {
	if t == nil {
		return "unknown"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
