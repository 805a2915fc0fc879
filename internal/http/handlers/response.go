// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. Success
// bodies are the bare entity or list; failures always use the taxonomy
// envelope produced by apperr.Response.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "code": 3001,
//	  "message": "Todo not found",
//	  "details": "Todo with id '42' not found"
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "id": "…", "title": "Buy milk", "description": "", "is_completed": false, … }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-todo-api/internal/apperr"
	"github.com/tbourn/go-todo-api/internal/http/middleware"
)

// fail translates err into the error envelope and aborts the request.
//
// Errors outside the taxonomy become ServerError (2000) with the fault's text
// as details. Server errors (>=500) are logged with the request-scoped logger.
func fail(c *gin.Context, err error) {
	e := apperr.From(err)
	if e == nil {
		e = apperr.Internal("")
	}

	if e.Status() >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Err(err).
			Int("code", int(e.Code)).
			Msg("api error")
	}

	middleware.AbortWithError(c, e)
}

// Fail is the exported variant of fail(), used by the router for NoRoute.
func Fail(c *gin.Context, err error) { fail(c, err) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
