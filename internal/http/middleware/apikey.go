// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the API-key gate that protects every todo route.
package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-todo-api/internal/apperr"
)

// HeaderAPIKey carries the pre-shared key.
const HeaderAPIKey = "X-API-Key"

// APIKey returns a gate that admits a request only when its X-API-Key header
// equals expected. Missing or mismatched keys are rejected with Unauthorized
// (2001) before any handler runs. The comparison is constant-time.
//
// An empty expected key rejects everything.
func APIKey(expected string) gin.HandlerFunc {
	want := []byte(expected)
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderAPIKey)
		if len(want) == 0 || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			AbortWithError(c, apperr.Unauthorized(""))
			return
		}
		c.Next()
	}
}
