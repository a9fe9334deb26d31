// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides a per-request deadline. Handlers observe the deadline
// through c.Request.Context(); storage calls that accept a context will fail
// with context.DeadlineExceeded once it fires.
//
// Caveat: a transaction that has already reached its commit point is not
// rolled back by the deadline. The client may receive a timeout for a write
// that in fact committed; the request token makes the safe retry path a
// replay rather than a duplicate.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout returns a Gin middleware that attaches a deadline of d to each
// request's context. A d <= 0 disables the middleware (no-op).
//
// This middleware does not write a response itself; handlers surface the
// context error through the normal error path so the response body keeps the
// standard shape (request_id, code, message).
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
