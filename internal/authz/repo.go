package authz

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/danielvega/portfolio-backend/pkg/db/models"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
)

// Repository loads role and permission sets from the relational model.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an authz repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// userByIdentity resolves the identity to its user row. An identity
// without a user is an error, not an empty grant set: callers must be
// able to tell "no such user" apart from "user with no grants", and an
// empty set would otherwise be cached as a deny.
func (r *Repository) userByIdentity(ctx context.Context, identityID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identity has no user")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user for identity")
	}
	return &user, nil
}

// RolesForIdentity returns the role names granted to the identity.
func (r *Repository) RolesForIdentity(ctx context.Context, identityID string) ([]string, error) {
	user, err := r.userByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	var names []string
	err = r.db.WithContext(ctx).
		Model(&models.Role{}).
		Distinct("roles.name").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", user.ID).
		Order("roles.name ASC").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// PermissionsForIdentity returns the permission names granted to the
// identity through its roles.
func (r *Repository) PermissionsForIdentity(ctx context.Context, identityID string) ([]string, error) {
	user, err := r.userByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	var names []string
	err = r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Distinct("permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", user.ID).
		Order("permissions.name ASC").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
