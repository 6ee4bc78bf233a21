package events

import (
	"github.com/google/uuid"
)

// Event is an immutable fact raised by an aggregate during a state change.
// The discriminator names the concrete payload type in the outbox table.
type Event interface {
	EventType() string
}

// Discriminators stored in the outbox type column.
const (
	TypeUserRegistered = "user.registered"
	TypeBlogPublished  = "blog.published"
	TypeTagCreated     = "tag.created"
)

// UserRegistered fires when a new user account is committed.
type UserRegistered struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

func (UserRegistered) EventType() string { return TypeUserRegistered }

// BlogPublished fires when a blog entry is committed.
type BlogPublished struct {
	BlogID   uuid.UUID `json:"blogId"`
	AuthorID uuid.UUID `json:"authorId"`
	Title    string    `json:"title"`
}

func (BlogPublished) EventType() string { return TypeBlogPublished }

// TagCreated fires when a tag is committed.
type TagCreated struct {
	TagID uuid.UUID `json:"tagId"`
	Name  string    `json:"name"`
}

func (TagCreated) EventType() string { return TypeTagCreated }
