package api

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ippiapp/ippi-server/internal/http/response"
	"github.com/ippiapp/ippi-server/internal/ratelimit"
)

const rateLimitedMessage = "Too many requests. Please try again later."

// RateLimiter limits requests per client IP.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter allows perMinute requests a minute per client, all of which
// may arrive in one burst.
func NewRateLimiter(perMinute int) *RateLimiter {
	return ratelimit.New(float64(perMinute)/time.Minute.Seconds(), perMinute)
}

// RateLimitMiddleware answers 429 with a Retry-After header once a client IP
// exceeds its budget.
func RateLimitMiddleware(limiter *RateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r, trustProxy)
			if ok, wait := limiter.Check(key); !ok {
				logger.WarnContext(r.Context(), "Rate limit exceeded", "ip", key, "path", r.URL.Path, "retry_after", wait)
				w.Header().Set("Retry-After", retryAfterSeconds(wait))
				response.TooManyRequests(w, rateLimitedMessage, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitOperation is RateLimitMiddleware for a single huma operation, so
// the token endpoint can carry a tighter budget than the rest of the API.
func (s *Server) rateLimitOperation(limiter *RateLimiter) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		key := rateLimitKey(s.opts.TrustProxyHeaders, ctx.Header("X-Forwarded-For"), ctx.Header("X-Real-IP"), ctx.RemoteAddr())
		if ok, wait := limiter.Check(key); !ok {
			s.logger.WarnContext(ctx.Context(), "Rate limit exceeded", "ip", key, "path", ctx.URL().Path, "retry_after", wait)
			ctx.SetHeader("Retry-After", retryAfterSeconds(wait))
			//nolint:errcheck // the response is already being written
			_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, rateLimitedMessage)
			return
		}
		next(ctx)
	}
}

// retryAfterSeconds rounds up to whole seconds, never below one.
func retryAfterSeconds(wait time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(wait.Seconds()))))
}

func getClientIP(r *http.Request, trustProxy bool) string {
	return rateLimitKey(trustProxy, r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP"), r.RemoteAddr)
}

// rateLimitKey reads the proxy headers only when a trusted proxy sets them.
// Otherwise any client could pick a fresh key per request.
func rateLimitKey(trustProxy bool, forwardedFor, realIP, remoteAddr string) string {
	if !trustProxy {
		forwardedFor, realIP = "", ""
	}
	return clientIP(forwardedFor, realIP, remoteAddr)
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's address without its port.
func clientIP(forwardedFor, realIP, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	if realIP != "" {
		return strings.TrimSpace(realIP)
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
