// Package http implements the thin HTTP edge (§6): enough of the
// session-upload, job-status, slice-bank and trigger-sequence surface to
// exercise the Job Orchestrator, Slice Engine and Trigger Engine from a
// real request. The full surface (auth, assets, embeddings, grid search,
// social features) is externally maintained; it is not reimplemented
// here, grounded on the teacher's middleware shapes in
// internal/middleware/common.go but reworked to carry a *zap.Logger
// instead of the teacher's package-global utils logger.
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
)

func randomID() string {
	return uuid.New().String()
}

// RequestLogger logs one line per request at Info level, mirroring the
// teacher's Logger middleware but through the injected logger instead of
// a package-global one.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Recovery turns a panic into a 500 instead of tearing down the server,
// same contract as the teacher's Recovery middleware.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r))
				c.JSON(500, gin.H{"error": "internal server error"})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// CORS allows any origin. LoopForge has no cross-tenant auth surface to
// protect here; the full CORS policy belongs to the externally
// maintained edge this package only stands in for.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RequestID stamps a request id onto the context and response so a log
// line can be correlated across the orchestrator and event bus.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = randomID()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// writeError maps a *errors.ServiceError to its HTTP status and a flat
// JSON body; anything else is surfaced as a 500 without leaking detail.
func writeError(c *gin.Context, err error) {
	if svcErr, ok := loopforgeerrors.AsServiceError(err); ok {
		body := gin.H{"error": svcErr.Message, "kind": string(svcErr.Kind)}
		if len(svcErr.Details) > 0 {
			body["details"] = svcErr.Details
		}
		c.JSON(svcErr.HTTPStatus(), body)
		return
	}
	c.JSON(500, gin.H{"error": "internal server error"})
}
