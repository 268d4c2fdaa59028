package handler

import (
	"fmt"
	"net/http"
	"time"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestId"

// RequestID assigns every request an id, reusing an inbound X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs one line per request
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"requestId": RequestIDFrom(c),
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("Request failed", fields)
			return
		}
		log.Info("Request handled", fields)
	}
}

// Recovery turns a panic into the internal_error response.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Panic recovered", map[string]interface{}{
			"requestId": RequestIDFrom(c),
			"panic":     fmt.Sprint(recovered),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":    string(apperrors.CodeInternal),
			"message":  apperrors.MessageOf(nil),
			"fallback": true,
		})
	})
}

// respondError writes the {error, message} body for err. Internal errors
// also carry fallback: true.
func respondError(c *gin.Context, log logger.Logger, err error) {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)

	body := gin.H{"error": string(code), "message": apperrors.MessageOf(err)}
	if code == apperrors.CodeInternal {
		body["fallback"] = true
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request error", map[string]interface{}{"requestId": RequestIDFrom(c), "code": string(code)})
	}
	c.JSON(status, body)
}
