// Package common provides shared utilities for go-widgets
package common

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request ID between browser, web UI and backend
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID stores a request ID in ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewRequestID returns a fresh random request ID
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDMiddleware accepts an incoming X-Request-ID or assigns one, echoes it
// in the response and stores it on the request context for downstream calls.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = NewRequestID()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// ApacheLogFormat logs requests in combined log format followed by the request ID
func ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		requestID, _ := param.Keys["request_id"].(string)
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s" %s %s`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
			requestID,
			param.Latency.Round(time.Microsecond),
		)
	})
}

// Logf prefixes a log line with the request ID from ctx
func Logf(ctx context.Context, prefix, format string, args ...any) {
	if id := RequestIDFromContext(ctx); id != "" {
		log.Printf(prefix+" ["+id+"] "+format, args...)
		return
	}
	log.Printf(prefix+" "+format, args...)
}
