package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"flowsync/pkg/auth"
	"flowsync/pkg/common"
)

// Authenticate validates the bearer token on the local surface. An empty
// secret disables validation, which is the development default when the
// UI and the core run as one trusted process group.
func Authenticate(secret, issuer string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				header = r.Header.Get("authorization")
			}
			if !strings.HasPrefix(header, "Bearer ") {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Missing authorization header")
				return
			}

			token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Invalid token")
				return
			}

			if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
				r = r.WithContext(common.WithUserID(r.Context(), sub))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies per-IP throttling to the local surface.
func RateLimit(limiter *auth.IPRateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil || !allowed {
				common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}
