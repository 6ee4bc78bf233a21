package controllers

import (
	"context"
	"net/http"

	"github.com/danielvega/portfolio-backend/api/responses"
	"github.com/danielvega/portfolio-backend/api/validators"
	"github.com/danielvega/portfolio-backend/internal/tags"
	"github.com/danielvega/portfolio-backend/pkg/logger"
)

// TagsService is the slice of the tags service the HTTP layer uses.
type TagsService interface {
	Create(ctx context.Context, req tags.CreateRequest) (tags.TagResponse, error)
	List(ctx context.Context) ([]tags.TagResponse, error)
}

// TagCreate registers a new tag name.
func TagCreate(svc TagsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tags.CreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tag, err := svc.Create(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tag)
	}
}

// TagList returns every tag ordered by name.
func TagList(svc TagsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
