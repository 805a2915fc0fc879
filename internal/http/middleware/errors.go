// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the single writer of the JSON error envelope. Every
// middleware and handler that rejects a request goes through AbortWithError,
// so status selection and the error-code metric stay in one place.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-todo-api/internal/apperr"
)

// ctxKeyErrorCode holds the taxonomy code of the error response, for logs.
const ctxKeyErrorCode = "error.code"

// AbortWithError stops the chain and writes e as the error envelope with the
// status from the taxonomy table.
func AbortWithError(c *gin.Context, e *apperr.Error) {
	c.Set(ctxKeyErrorCode, int(e.Code))
	ObserveError(e.Code)
	c.AbortWithStatusJSON(e.Status(), e.Response())
}

// ErrorCode returns the taxonomy code written by AbortWithError, if any.
func ErrorCode(c *gin.Context) (apperr.Code, bool) {
	v, ok := c.Get(ctxKeyErrorCode)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return apperr.Code(n), ok
}
