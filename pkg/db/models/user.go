package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielvega/portfolio-backend/pkg/events"
)

// User represents the canonical identity entity. Credentials live in the
// external identity provider; IdentityID links the two.
type User struct {
	events.Recorder `gorm:"-"`

	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	FirstName  string         `gorm:"column:first_name;not null"`
	LastName   string         `gorm:"column:last_name;not null"`
	Email      string         `gorm:"type:text;not null;uniqueIndex:ux_users_email"`
	IdentityID string         `gorm:"column:identity_id;not null;uniqueIndex:ux_users_identity_id"`
	Version    int            `gorm:"column:version;not null;default:0"`
	Roles      []Role         `gorm:"many2many:user_roles;"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at"`
}

// Register builds a new user with the starter role and buffers the
// registration event for the outbox.
func Register(firstName, lastName, email, identityID string, role Role) *User {
	user := &User{
		ID:         uuid.New(),
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		IdentityID: identityID,
		Roles:      []Role{role},
	}
	user.Raise(events.UserRegistered{UserID: user.ID, Email: email})
	return user
}
