package api

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/aegis-options/pkg/logger"
	"github.com/wonny/aegis-options/pkg/redis"
)

// RateLimiter limits search requests per client address.
// Redis가 켜져 있으면 레플리카 간 공유 슬라이딩 윈도우, 아니면 프로세스 내 토큰 버킷
type RateLimiter struct {
	perSecond float64
	burst     int
	shared    *redis.RateLimiter
	logger    *logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter. perSecond <= 0 disables limiting; shared may be nil.
func NewRateLimiter(perSecond float64, burst int, shared *redis.RateLimiter, log *logger.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		perSecond: perSecond,
		burst:     burst,
		shared:    shared,
		logger:    log,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the client may issue another request now
func (l *RateLimiter) Allow(r *http.Request, client string) bool {
	if l.perSecond <= 0 {
		return true
	}

	if l.shared != nil && l.shared.Enabled() {
		allowed, _, err := l.shared.Allow(r.Context(), redis.SearchRateLimit(client, l.perSecond, l.burst))
		if err == nil {
			return allowed
		}
		l.logger.WithError(err).Warn("Shared rate limiter failed, using local limiter")
	}

	l.mu.Lock()
	lim, ok := l.limiters[client]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
		l.limiters[client] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

// Middleware rejects over-limit requests with 429
func (l *RateLimiter) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			if !l.Allow(r, client) {
				l.logger.WithField("client", client).Warn("Rate limit exceeded")
				writeJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
