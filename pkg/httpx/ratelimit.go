package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines token-bucket parameters for a group of endpoints.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the window.
	RequestsPerWindow int
	// Window is the time window the allowance is spread over.
	Window time.Duration
	// Burst is how much of the allowance may be consumed at once.
	Burst int
}

// Rate limit profiles. Credential endpoints get the strict profile to slow
// online brute force; everything else behind the gate gets the lenient one.
var (
	StrictLimit  = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
)

// KeyExtractor derives the bucketing key for a request (IP, user ID, ...).
type KeyExtractor func(*http.Request) string

// IPKey extracts the client IP, honouring X-Forwarded-For / X-Real-IP for
// proxied deployments before falling back to RemoteAddr.
func IPKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKey extracts the authenticated user ID from the request context.
// Empty when the request hasn't passed the authentication gate.
func UserIDKey(r *http.Request) string {
	return UserIDFromCtx(r.Context())
}

// CompositeKey joins the non-empty results of several extractors, e.g.
// IP + login email to bucket credential attempts per account per source.
func CompositeKey(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, ex := range extractors {
			if k := ex(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

// limiterPool manages one rate.Limiter per key, evicting stale entries so an
// attacker rotating keys can't grow memory without bound.
type limiterPool struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*poolEntry
	lastSeen time.Time
}

type poolEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

const poolCleanupInterval = 10 * time.Minute

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	return &limiterPool{
		limit:    rate.Every(cfg.Window / time.Duration(cfg.RequestsPerWindow)),
		burst:    cfg.Burst,
		limiters: make(map[string]*poolEntry),
		lastSeen: time.Now(),
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if now.Sub(p.lastSeen) > poolCleanupInterval {
		for k, e := range p.limiters {
			if now.Sub(e.seen) > poolCleanupInterval {
				delete(p.limiters, k)
			}
		}
		p.lastSeen = now
	}

	e, ok := p.limiters[key]
	if !ok {
		e = &poolEntry{lim: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[key] = e
	}
	e.seen = now
	return e.lim
}

// RateLimit builds a middleware enforcing cfg per key produced by extract.
// Requests with no derivable key pass through unlimited.
func RateLimit(cfg RateLimitConfig, extract KeyExtractor) Middleware {
	pool := newLimiterPool(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extract(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !pool.get(key).Allow() {
				retry := max(int(cfg.Window.Seconds())/max(cfg.RequestsPerWindow, 1), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"message": "too many requests, slow down",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by source IP only.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, IPKey)
}

// RateLimitByUser limits by authenticated user, falling back to IP.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, CompositeKey(UserIDKey, IPKey))
}
