// file: internal/middleware/request_id.go
package middleware

import (
	"context"
	"net/http"
	"time"

	"memorybox/internal/contextutils"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ContextKey type for context keys to avoid conflicts
type ContextKey string

// RequestStartKey is the context key for request start time
const RequestStartKey ContextKey = "request_start"

// Request ID header constants
const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

// maxRequestIDLen caps client-supplied ids before they reach logs
const maxRequestIDLen = 128

// RequestID injects a correlation id, the client address and a
// request-scoped logger into the context. A nil resolver attributes every
// request to its direct peer.
func RequestID(logger *zap.Logger, clientIPs *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// honour an upstream id for distributed tracing
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				requestID = r.Header.Get(HeaderXCorrelationID)
			}
			if requestID == "" || len(requestID) > maxRequestIDLen {
				requestID = newRequestID(start)
			}

			w.Header().Set(HeaderXRequestID, requestID)

			clientIP := clientIPs.Resolve(r)
			requestLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", clientIP),
			)

			ctx := contextutils.WithRequestID(r.Context(), requestID)
			ctx = contextutils.WithLogger(ctx, requestLogger)
			ctx = contextutils.WithClientIP(ctx, clientIP)
			ctx = context.WithValue(ctx, RequestStartKey, start)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRequestID(start time.Time) string {
	if id, err := uuid.NewV4(); err == nil {
		return id.String()
	}
	return "req_" + start.UTC().Format("20060102150405.000000000")
}
