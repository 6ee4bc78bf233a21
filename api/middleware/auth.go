package middleware

import (
	"net/http"
	"strings"

	"github.com/danielvega/portfolio-backend/api/responses"
	pkgauth "github.com/danielvega/portfolio-backend/pkg/auth"
	"github.com/danielvega/portfolio-backend/pkg/config"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// identity subject the token was issued for.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentityID(r.Context(), claims.IdentityID())
			if claims.Email != "" {
				ctx = WithEmail(ctx, claims.Email)
			}

			if logg != nil {
				ctx = logg.WithIdentityID(ctx, claims.IdentityID())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
