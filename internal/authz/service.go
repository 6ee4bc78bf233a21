package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/redis"
)

const (
	rolesKeyFormat       = "auth:roles-%s"
	permissionsKeyFormat = "auth:permissions-%s"

	defaultTTL = time.Minute
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type grantSource interface {
	RolesForIdentity(ctx context.Context, identityID string) ([]string, error)
	PermissionsForIdentity(ctx context.Context, identityID string) ([]string, error)
}

type ServiceParams struct {
	Repository grantSource
	Cache      cacheStore
	Logger     *logger.Logger
	TTL        time.Duration
}

// Service answers role and permission checks through a read-through
// cache. Entries expire on their TTL; nothing invalidates them early, so
// grant changes become visible within one TTL window at the latest.
type Service struct {
	repo  grantSource
	cache cacheStore
	logg  *logger.Logger
	ttl   time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if params.Cache == nil {
		return nil, errors.New("cache store is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		repo:  params.Repository,
		cache: params.Cache,
		logg:  params.Logger,
		ttl:   ttl,
	}, nil
}

// Roles returns the role names granted to the identity.
func (s *Service) Roles(ctx context.Context, identityID string) ([]string, error) {
	if identityID == "" {
		return nil, errors.New("identity id is required")
	}
	key := fmt.Sprintf(rolesKeyFormat, identityID)
	return s.readThrough(ctx, key, func(ctx context.Context) ([]string, error) {
		return s.repo.RolesForIdentity(ctx, identityID)
	})
}

// Permissions returns the permission names granted to the identity.
func (s *Service) Permissions(ctx context.Context, identityID string) ([]string, error) {
	if identityID == "" {
		return nil, errors.New("identity id is required")
	}
	key := fmt.Sprintf(permissionsKeyFormat, identityID)
	return s.readThrough(ctx, key, func(ctx context.Context) ([]string, error) {
		return s.repo.PermissionsForIdentity(ctx, identityID)
	})
}

// HasRole reports whether the identity holds the named role.
func (s *Service) HasRole(ctx context.Context, identityID, role string) (bool, error) {
	roles, err := s.Roles(ctx, identityID)
	if err != nil {
		return false, err
	}
	for _, name := range roles {
		if name == role {
			return true, nil
		}
	}
	return false, nil
}

// HasPermission reports whether the identity holds the named permission.
func (s *Service) HasPermission(ctx context.Context, identityID, permission string) (bool, error) {
	permissions, err := s.Permissions(ctx, identityID)
	if err != nil {
		return false, err
	}
	for _, name := range permissions {
		if name == permission {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) readThrough(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		var values []string
		if unmarshalErr := json.Unmarshal([]byte(cached), &values); unmarshalErr == nil {
			return values, nil
		}
		// Unreadable entries fall through to the database and get rewritten.
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "discarding unreadable cache entry")
	} else if !redis.IsMiss(err) {
		return nil, fmt.Errorf("read cache %s: %w", key, err)
	}

	values, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode cache %s: %w", key, err)
	}
	if err := s.cache.Set(ctx, key, string(encoded), s.ttl); err != nil {
		// Serving the fresh values matters more than caching them.
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "failed to write cache entry")
	}
	return values, nil
}
