package middleware

import (
	"net/http"

	"github.com/garrettladley/minimon/internal/storage"
	"github.com/garrettladley/minimon/internal/xerrors"
	"github.com/garrettladley/minimon/internal/xhttp"
	"github.com/garrettladley/minimon/internal/xslog"
)

// RateLimit applies per-IP rate limiting. keyPrefix scopes the limiter so
// several routes can share one backend.
func RateLimit(limiter storage.RateLimiter, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := xhttp.GetRequestIP(r)

			result, err := limiter.Allow(ctx, keyPrefix+ip)
			if err != nil {
				xslog.FromContext(ctx).ErrorContext(ctx, "rate limit check failed",
					xslog.ErrorGroup(err),
					xslog.IP(ip),
				)
				xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
					xerrors.WithMessage("rate limit check failed"),
					xerrors.WithCause(err),
				))
				return
			}

			if !result.Allowed {
				xerrors.WriteError(ctx, w, xerrors.TooManyRequests(
					xerrors.WithRetryAfter(result.RetryAfter),
					xerrors.WithReason("ip_rate_limit"),
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
