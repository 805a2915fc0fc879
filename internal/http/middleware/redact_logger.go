// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access log of the todo API. It
// never logs bodies, masks credential headers (X-API-Key included) and scrubs
// identifiers from the query string and remaining header values.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Session"},
//	}))
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders names extra headers whose values are replaced with "[REDACTED]".
// Matching is case-insensitive and merged with the built-in set
// (Authorization, Cookie, Set-Cookie, X-API-Key).
type RedactOptions struct {
	MaskHeaders []string
}

const redactedValue = "[REDACTED]"

var (
	// UUIDs go first so the phone pattern never sees their digit groups.
	uuidPattern  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// digits only, e.g. "+1 212-555-1212", "(212) 555-1212"
	phonePattern = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redactor scrubs request metadata before it reaches the log.
type redactor struct {
	masked map[string]struct{}
}

func newRedactor(extra []string) redactor {
	masked := map[string]struct{}{
		"authorization":               {},
		"cookie":                      {},
		"set-cookie":                  {},
		strings.ToLower(HeaderAPIKey): {},
	}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}
	return redactor{masked: masked}
}

// scrub replaces ids, emails and phone numbers in s.
func (redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidPattern.ReplaceAllString(s, "[REDACTED:id]")
	s = emailPattern.ReplaceAllString(s, "[REDACTED:email]")
	return phonePattern.ReplaceAllString(s, "[REDACTED:phone]")
}

// headers flattens h, masking credential headers and scrubbing the rest.
func (r redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = redactedValue
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// levelFor picks the access-log level: error for 5xx, warn for 4xx.
func levelFor(status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	default:
		return log.Info()
	}
}

// RedactingLogger returns the access-log middleware. It attaches the
// request-scoped logger (see LoggerFrom), runs the chain, and then emits one
// "http_request" entry with method, route, scrubbed query (capped at
// maxQueryLogLength), status, taxonomy error code when the response is an
// error envelope, size, latency and scrubbed headers.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()
		attachLogger(c)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := truncate(rd.scrub(c.Request.URL.RawQuery), maxQueryLogLength)
		hdrs := rd.headers(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(HeaderRequestID)
		if reqID == "" {
			reqID = c.GetHeader(HeaderRequestID)
		}

		ev := levelFor(status)
		if code, ok := ErrorCode(c); ok {
			ev = ev.Int("error_code", int(code))
		}
		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", hdrs).
			Msg("http_request")
	}
}
