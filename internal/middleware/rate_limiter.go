// file: internal/middleware/rate_limiter.go
package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"memorybox/internal/response"
	"memorybox/internal/services"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds rate limiting configuration
type RateLimiterConfig struct {
	Enabled           bool          `json:"enabled"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	Burst             int           `json:"burst"`
	HeadersEnabled    bool          `json:"headers_enabled"`
	IdleTTL           time.Duration `json:"idle_ttl"`
	// MaxClients bounds the limiter table; idle entries are evicted first
	MaxClients int `json:"max_clients"`
}

// DefaultRateLimiterConfig returns production-ready rate limiting configuration
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 5,
		Burst:             10,
		HeadersEnabled:    true,
		IdleTTL:           10 * time.Minute,
		MaxClients:        10000,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client address
type RateLimiter struct {
	config  *RateLimiterConfig
	builder *response.Builder
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimiterConfig, builder *response.Builder, logger *zap.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		config:  config,
		builder: builder,
		logger:  logger.Named("rate-limiter"),
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Limit wraps next with the per-client limit
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	if !rl.config.Enabled || rl.config.RequestsPerSecond <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		limiter := rl.getLimiter(key)

		reservation := limiter.ReserveN(rl.now(), 1)
		if !reservation.OK() {
			rl.reject(w, r, key, time.Second)
			return
		}
		if delay := reservation.DelayFrom(rl.now()); delay > 0 {
			// not spending the token keeps a throttled client from starving itself further
			reservation.CancelAt(rl.now())
			rl.reject(w, r, key, delay)
			return
		}

		if rl.config.HeadersEnabled {
			rl.writeHeaders(w, limiter)
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request, key string, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	GetRequestLogger(r.Context()).Warn("Rate limit exceeded",
		zap.String("client", maskIP(key)),
		zap.Duration("retry_after", retryAfter),
	)

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	if rl.config.HeadersEnabled {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))
		w.Header().Set("X-RateLimit-Remaining", "0")
	}
	rl.builder.WriteError(w, r, services.NewRateLimitError("rate limit exceeded", map[string]interface{}{
		"retry_after_seconds": seconds,
	}))
}

func (rl *RateLimiter) writeHeaders(w http.ResponseWriter, limiter *rate.Limiter) {
	remaining := int(limiter.TokensAt(rl.now()))
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// getLimiter returns the limiter for key, creating it on first use
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictLocked(now)

	entry, ok := rl.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictLocked drops idle clients at most once per IdleTTL, or sooner
// when the table is full
func (rl *RateLimiter) evictLocked(now time.Time) {
	full := rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients
	if !full && now.Sub(rl.lastSweep) < rl.config.IdleTTL {
		return
	}
	rl.lastSweep = now

	for key, entry := range rl.clients {
		if now.Sub(entry.lastSeen) >= rl.config.IdleTTL {
			delete(rl.clients, key)
		}
	}

	// still full means everyone is active; start over rather than grow unbounded
	if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
		rl.logger.Warn("Rate limiter table full, resetting", zap.Int("clients", len(rl.clients)))
		rl.clients = make(map[string]*clientLimiter)
	}
}

// Clients reports how many client buckets are tracked
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// maskIP masks IP address for logging privacy
func maskIP(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) == 4 {
		return fmt.Sprintf("%s.%s.***.*", parts[0], parts[1])
	}
	return "***"
}
