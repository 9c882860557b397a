package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hmoreno/cierre-fiscal/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const profileKey contextKey = "profile"

// profileClaims are the token claims this backend consumes. Issuing tokens
// and switching profiles happens elsewhere; only the flag values matter here.
type profileClaims struct {
	TaxRegime string `json:"tax_regime,omitempty"`
	Flags     struct {
		JourneyEnabled   *bool `json:"journey_enabled,omitempty"`
		TaxEngineEnabled *bool `json:"tax_engine_enabled,omitempty"`
	} `json:"feature_flags,omitempty"`
	jwt.RegisteredClaims
}

// ProfileMiddleware validates Bearer tokens and injects the profile into the
// request context. With devProfile set, requests without a token get a fixed
// development profile instead of a 401.
func ProfileMiddleware(secret string, devProfile bool, devProfileID string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if devProfile {
					ctx := context.WithValue(r.Context(), profileKey, &domain.Profile{ID: devProfileID})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				logger.Warn("profile: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing profile token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims := &profileClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				logger.Warn("profile: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, "invalid or expired profile token")
				return
			}

			profile := &domain.Profile{
				ID:        claims.Subject,
				TaxRegime: domain.TaxRegime(claims.TaxRegime),
			}
			profile.Flags.JourneyEnabled = claims.Flags.JourneyEnabled
			profile.Flags.TaxEngineEnabled = claims.Flags.TaxEngineEnabled

			ctx := context.WithValue(r.Context(), profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext extracts the authenticated profile from context.
func ProfileFromContext(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(profileKey).(*domain.Profile)
	return p
}
