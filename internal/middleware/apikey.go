package middleware

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// APIKeyMiddleware authenticates POS and consumer-app bridge requests via
// the X-API-Key header and applies a per-key request rate limit.
func APIKeyMiddleware(apiKey string, requestsPerMinute int) fiber.Handler {
	limiters := &keyLimiters{
		limit: rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst: requestsPerMinute,
		byKey: make(map[string]*rate.Limiter),
	}

	return func(c *fiber.Ctx) error {
		presented := c.Get("X-API-Key")
		if presented == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing api key")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid api key")
		}

		if !limiters.allow(presented) {
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}

		return c.Next()
	}
}

type keyLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byKey map[string]*rate.Limiter
}

func (l *keyLimiters) allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.byKey[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.byKey[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
