// Package middleware holds the Gin middleware shared by the journal API.
//
// Recommended order on the engine: RequestID, Logger (or RedactingLogger),
// Recovery. Auth-bearing routes add BearerAuth on their group so the
// access log can report the resolved user once the handler chain returns.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps the raw query logged per request.
	maxQueryLogLength = 1024
)

// RequestID reuses an inbound X-Request-ID or mints a UUIDv4, echoing it on
// the response and storing it in the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger emits one structured access line per request and attaches a
// request-scoped logger under the "logger" context key.
func Logger() gin.HandlerFunc {
	return accessLog(func(s string) string { return s }, nil)
}

// accessLog is shared by Logger and RedactingLogger. scrub is applied to
// every free-form string that may carry user data; headers, when set,
// renders the request headers to attach to the line.
func accessLog(scrub func(string) string, headers func(*gin.Context) map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		lc := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", scrub(path)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", scrub(c.Request.UserAgent())).
			Str("query", scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))).
			Int64("bytes_in", c.Request.ContentLength)
		if headers != nil {
			lc = lc.Interface("headers", headers(c))
		}
		l := lc.Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		fields := l.With().
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size())
		// the user is only known after BearerAuth ran inside the chain
		if uid := c.GetString(userIDKey); uid != "" {
			fields = fields.Str("user_id", uid)
		}
		done := fields.Logger()

		switch {
		case len(c.Errors) > 0:
			done.Error().Str("errors", scrub(c.Errors.String())).Msg("request")
		case status >= http.StatusInternalServerError:
			done.Error().Msg("request")
		case status >= http.StatusBadRequest:
			done.Warn().Msg("request")
		default:
			done.Info().Msg("request")
		}
	}
}

// Recovery turns a panic into a JSON 500 carrying the request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global one when
// Logger did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
