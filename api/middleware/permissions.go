package middleware

import (
	"context"
	"net/http"

	"github.com/danielvega/portfolio-backend/api/responses"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/logger"
)

// PermissionChecker answers whether an identity holds a named permission.
type PermissionChecker interface {
	HasPermission(ctx context.Context, identityID, permission string) (bool, error)
}

// RequirePermission gates a route on a permission grant. It must run
// after Auth so the identity subject is present in the context.
func RequirePermission(checker PermissionChecker, permission string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identityID := IdentityIDFromContext(r.Context())
			if identityID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			allowed, err := checker.HasPermission(r.Context(), identityID, permission)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "permission required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
