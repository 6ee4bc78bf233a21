package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/danielvega/portfolio-backend/api/middleware"
	"github.com/danielvega/portfolio-backend/api/responses"
	"github.com/danielvega/portfolio-backend/api/validators"
	"github.com/danielvega/portfolio-backend/internal/blogs"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/pagination"
)

// BlogsService is the slice of the blogs service the HTTP layer uses.
type BlogsService interface {
	Publish(ctx context.Context, authorID uuid.UUID, req blogs.PublishRequest) (blogs.BlogResponse, error)
	Get(ctx context.Context, id uuid.UUID) (blogs.BlogResponse, error)
	List(ctx context.Context, params pagination.Params) (blogs.BlogPage, error)
}

// BlogPublish creates and publishes a blog entry authored by the
// authenticated user.
func BlogPublish(svc BlogsService, userSvc UsersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identityID := middleware.IdentityIDFromContext(r.Context())
		if identityID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req blogs.PublishRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		author, err := userSvc.GetByIdentity(r.Context(), identityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blog, err := svc.Publish(r.Context(), author.ID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, blog)
	}
}

// BlogDetail returns a single published blog with its tags.
func BlogDetail(svc BlogsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := routeUUID(r, "blogId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blog, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

// BlogList returns blogs newest-first with cursor pagination.
func BlogList(svc BlogsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: validators.QueryCursor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
