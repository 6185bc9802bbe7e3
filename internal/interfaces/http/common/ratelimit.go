package common

import (
	"context"
	"log"
	"net/http"
)

// Limiter decides whether a keyed request is within quota.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit はクライアント IP 単位でリクエストを制限するミドルウェアを返す。
// limiter が nil の場合は何もしない。ストア障害時はログを残して通過させる。
func RateLimit(logger *log.Logger, limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil && logger != nil {
				logger.Printf("rate limiter unavailable, allowing %s: %v", key, err)
			}
			if !allowed {
				WriteMessage(logger, w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
