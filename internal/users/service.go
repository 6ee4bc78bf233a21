package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/danielvega/portfolio-backend/pkg/db"
	"github.com/danielvega/portfolio-backend/pkg/db/models"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/events"
	"github.com/danielvega/portfolio-backend/pkg/identity"
	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/pagination"
)

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type identityProvider interface {
	Register(ctx context.Context, params identity.RegisterParams) (string, error)
	Login(ctx context.Context, email, password string) (*identity.TokenPair, error)
	Delete(ctx context.Context, identityID string) error
}

type eventWriter interface {
	Persist(ctx context.Context, tx *gorm.DB, sources ...events.Source) error
}

// ServiceParams packages the dependencies for the users service.
type ServiceParams struct {
	DB       dbClient
	Identity identityProvider
	Writer   eventWriter
	Logger   *logger.Logger
}

// Service owns the user lifecycle: provider registration, profile reads
// and writes, and soft deletion.
type Service struct {
	db       dbClient
	identity identityProvider
	writer   eventWriter
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Identity == nil {
		return nil, errors.New("identity provider is required")
	}
	if params.Writer == nil {
		return nil, errors.New("outbox writer is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		db:       params.DB,
		identity: params.Identity,
		writer:   params.Writer,
		logg:     params.Logger,
	}, nil
}

// Register provisions the login at the identity provider, then commits
// the user row, its starter role, and the registration event together.
// A failed transaction rolls the provider login back best-effort.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return UserResponse{}, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	if _, err := NewRepository(s.db.DB()).FindByEmail(ctx, email); err == nil {
		return UserResponse{}, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UserResponse{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	identityID, err := s.identity.Register(ctx, identity.RegisterParams{
		Email:     email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return UserResponse{}, err
	}

	user := models.Register(req.FirstName, req.LastName, email, identityID, models.RoleRegistered)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := repo.Create(ctx, user); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_users_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return s.writer.Persist(ctx, tx, user)
	})
	if err != nil {
		if deleteErr := s.identity.Delete(ctx, identityID); deleteErr != nil {
			s.logg.Error(s.logg.WithIdentityID(ctx, identityID), "orphaned identity after failed registration", deleteErr)
		}
		return UserResponse{}, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return toResponse(user), nil
}

// Login exchanges credentials for provider tokens.
func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	pair, err := s.identity.Login(ctx, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// GetByIdentity returns the profile behind the authenticated identity.
func (s *Service) GetByIdentity(ctx context.Context, identityID string) (UserResponse, error) {
	user, err := NewRepository(s.db.DB()).FindByIdentityID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return UserResponse{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return toResponse(user), nil
}

// GetByID returns a single user by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (UserResponse, error) {
	user, err := NewRepository(s.db.DB()).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return UserResponse{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return toResponse(user), nil
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, params pagination.Params) (UserPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return UserPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := NewRepository(s.db.DB()).List(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return UserPage{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	page := UserPage{Items: make([]UserResponse, 0, len(rows))}
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

// Update rewrites the profile fields if the caller holds the current
// version.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (UserResponse, error) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if err := repo.UpdateProfile(ctx, id, req.FirstName, req.LastName, req.Version); err != nil {
			if dbpkg.IsConcurrentModification(err) {
				return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "user was updated concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
		}
		return nil
	})
	if err != nil {
		return UserResponse{}, err
	}
	return s.GetByID(ctx, id)
}

// Delete soft-deletes the user row. The provider login stays; historical
// content keeps its author.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := NewRepository(s.db.DB()).Delete(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user deleted")
	return nil
}
