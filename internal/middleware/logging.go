package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"go.uber.org/zap"
)

// RequestID propagates X-Request-ID, generating one when the client sent
// none.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, id)
		c.Header(constants.HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger writes one structured line per request
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(constants.ContextKeyRequestID)),
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, zap.Uint64("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// Recovery turns a panic into a logged 500
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(constants.ContextKeyRequestID)),
		)
		apierrors.InternalError(c, "")
		c.Abort()
	})
}
