package trace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"spendsync/internal/log"
)

// HeaderRequestID is echoed on every response and honoured on requests.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// Middleware assigns a request id, attaches a request-scoped logger to the
// request context and logs start and completion.
func Middleware(logger *log.Logger) gin.HandlerFunc {
	structured := log.NewStructuredLogger(logger)
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		reqLogger := logger.With(log.FieldRequestID, requestID)
		ctx := log.WithContext(c.Request.Context(), reqLogger)
		c.Request = c.Request.WithContext(ctx)

		clientIP := c.ClientIP()
		structured.LogHTTPStart(ctx, c.Request, clientIP)

		c.Next()

		structured.LogHTTPEnd(ctx, c.Request, c.Writer.Status(), time.Since(start).Milliseconds(), clientIP)
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// RequestID returns the id assigned by Middleware, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
