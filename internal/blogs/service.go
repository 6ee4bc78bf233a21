package blogs

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
	"github.com/danielvega/portfolio-backend/pkg/pagination"
)

// PublishRequest carries the payload for a new blog entry.
type PublishRequest struct {
	Title   string   `json:"title" validate:"required,min=3,max=200"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"max=10"`
}

// BlogResponse is the public view of a blog entry.
type BlogResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  uuid.UUID `json:"author_id"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BlogPage is a cursor-paginated slice of blogs.
type BlogPage struct {
	Items      []BlogResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventWriter interface {
	Persist(ctx context.Context, tx *gorm.DB, sources ...events.Source) error
}

type tagResolver interface {
	FindByNames(ctx context.Context, names []string) ([]models.Tag, error)
}

// ServiceParams packages the dependencies for the blogs service.
type ServiceParams struct {
	DB     dbClient
	Writer eventWriter
	Tags   tagResolver
	Logger *logger.Logger
}

type Service struct {
	db     dbClient
	writer eventWriter
	tags   tagResolver
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Writer == nil {
		return nil, errors.New("outbox writer is required")
	}
	if params.Tags == nil {
		return nil, errors.New("tag resolver is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{db: params.DB, writer: params.Writer, tags: params.Tags, logg: params.Logger}, nil
}

// Publish commits a blog entry, its tag links, and its published event
// together.
func (s *Service) Publish(ctx context.Context, authorID uuid.UUID, req PublishRequest) (BlogResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return BlogResponse{}, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	tags, err := s.tags.FindByNames(ctx, req.Tags)
	if err != nil {
		return BlogResponse{}, err
	}

	blog := models.PublishBlog(title, req.Content, authorID, tags)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(blog).Error; err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_blogs_title") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a blog with this title already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create blog")
		}
		return s.writer.Persist(ctx, tx, blog)
	})
	if err != nil {
		return BlogResponse{}, err
	}

	s.logg.Info(s.logg.WithField(ctx, "blog_id", blog.ID.String()), "blog published")
	return toResponse(blog), nil
}

// Get returns a single blog with its tags.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (BlogResponse, error) {
	var blog models.Blog
	err := s.db.DB().WithContext(ctx).Preload("Tags").First(&blog, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BlogResponse{}, pkgerrors.New(pkgerrors.CodeNotFound, "blog not found")
		}
		return BlogResponse{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load blog")
	}
	return toResponse(&blog), nil
}

// List returns a page of blogs, newest first.
func (s *Service) List(ctx context.Context, params pagination.Params) (BlogPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return BlogPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := s.db.DB().WithContext(ctx).Preload("Tags").
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Blog
	if err := query.Find(&rows).Error; err != nil {
		return BlogPage{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list blogs")
	}

	page := BlogPage{Items: make([]BlogResponse, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		page.Items = append(page.Items, toResponse(&rows[i]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func toResponse(blog *models.Blog) BlogResponse {
	names := make([]string, 0, len(blog.Tags))
	for _, tag := range blog.Tags {
		names = append(names, tag.Name)
	}
	return BlogResponse{
		ID:        blog.ID,
		Title:     blog.Title,
		Content:   blog.Content,
		AuthorID:  blog.AuthorID,
		Tags:      names,
		CreatedAt: blog.CreatedAt,
	}
}
