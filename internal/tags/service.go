package tags

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/danielvega/portfolio-backend/pkg/db"
	"github.com/danielvega/portfolio-backend/pkg/db/models"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/events"
	"github.com/danielvega/portfolio-backend/pkg/logger"
)

// CreateRequest carries the payload for a new tag.
type CreateRequest struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

// TagResponse is the public view of a tag.
type TagResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventWriter interface {
	Persist(ctx context.Context, tx *gorm.DB, sources ...events.Source) error
}

// ServiceParams packages the dependencies for the tags service.
type ServiceParams struct {
	DB     dbClient
	Writer eventWriter
	Logger *logger.Logger
}

type Service struct {
	db     dbClient
	writer eventWriter
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Writer == nil {
		return nil, errors.New("outbox writer is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{db: params.DB, writer: params.Writer, logg: params.Logger}, nil
}

// Create commits a tag and its created event together. Names are unique
// case-insensitively by normalizing to lower case.
func (s *Service) Create(ctx context.Context, req CreateRequest) (TagResponse, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		return TagResponse{}, pkgerrors.New(pkgerrors.CodeValidation, "tag name is required")
	}

	tag := models.CreateTag(name)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(tag).Error; err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_tags_name") {
				return pkgerrors.New(pkgerrors.CodeConflict, "tag already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create tag")
		}
		return s.writer.Persist(ctx, tx, tag)
	})
	if err != nil {
		return TagResponse{}, err
	}
	return toResponse(tag), nil
}

// List returns every tag ordered by name.
func (s *Service) List(ctx context.Context) ([]TagResponse, error) {
	var rows []models.Tag
	if err := s.db.DB().WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tags")
	}
	out := make([]TagResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i]))
	}
	return out, nil
}

// FindByNames resolves tag models for the given names, failing when any
// name is unknown.
func (s *Service) FindByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(name)))
	}
	var rows []models.Tag
	if err := s.db.DB().WithContext(ctx).Where("name IN ?", normalized).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load tags")
	}
	if len(rows) != len(normalized) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown tag name")
	}
	return rows, nil
}

func toResponse(tag *models.Tag) TagResponse {
	return TagResponse{ID: tag.ID, Name: tag.Name, CreatedAt: tag.CreatedAt}
}
