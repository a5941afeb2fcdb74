// File: internal/middleware/recovery.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"memorybox/internal/response"
	"memorybox/internal/services"

	"go.uber.org/zap"
)

// RecoveryConfig holds configuration for panic recovery middleware
type RecoveryConfig struct {
	EnableStackTrace bool `json:"enable_stack_trace"`
	MaxStackBytes    int  `json:"max_stack_bytes"`
}

// DefaultRecoveryConfig returns production-ready recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		EnableStackTrace: true,
		MaxStackBytes:    8 << 10,
	}
}

// Recovery turns a handler panic into a logged 500 envelope
func Recovery(builder *response.Builder, config *RecoveryConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// the server must see this one to abort the connection
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				fields := []zap.Field{zap.Any("panic", rec)}
				if config.EnableStackTrace {
					stack := debug.Stack()
					if config.MaxStackBytes > 0 && len(stack) > config.MaxStackBytes {
						stack = stack[:config.MaxStackBytes]
					}
					fields = append(fields, zap.ByteString("stack", stack))
				}
				GetRequestLogger(r.Context()).Error("Panic recovered", fields...)

				cause, ok := rec.(error)
				if !ok {
					cause = fmt.Errorf("%v", rec)
				}
				builder.WriteError(w, r, services.NewInternalError("internal server error", errors.Join(errPanic, cause)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

var errPanic = errors.New("handler panicked")
