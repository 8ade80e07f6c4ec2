package server

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// actorRateLimiter keeps a token bucket per actor. Vote endpoints are the
// cheapest way to farm reputation swings, so they get a per-user budget
// instead of a per-IP one.
type actorRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newActorRateLimiter(perSecond float64, burst int) *actorRateLimiter {
	return &actorRateLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(5 * time.Minute),
	}
}

func (l *actorRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Now().After(l.cleanupAt) {
		l.cleanup()
		l.cleanupAt = time.Now().Add(5 * time.Minute)
	}

	entry, exists := l.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}

	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanup removes limiters idle for 10 minutes. Must be called with mu held.
func (l *actorRateLimiter) cleanup() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

// rateLimitVotes rejects requests once the actor's token bucket runs dry.
// Unidentified requests fall back to a per-IP budget so the limit cannot be
// dodged by dropping the header.
func (s *Server) rateLimitVotes(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(userIDHeader)
		if key == "" {
			key = c.RealIP()
		}
		if !s.voteLimiter.allow(key) {
			return echo.NewHTTPError(429, "vote rate limit exceeded")
		}
		return next(c)
	}
}
