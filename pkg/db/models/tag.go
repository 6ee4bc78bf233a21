package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielvega/portfolio-backend/pkg/events"
)

// Tag labels blogs. Names are unique.
type Tag struct {
	events.Recorder `gorm:"-"`

	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:ux_tags_name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// CreateTag builds a tag and buffers its created event.
func CreateTag(name string) *Tag {
	tag := &Tag{
		ID:   uuid.New(),
		Name: name,
	}
	tag.Raise(events.TagCreated{TagID: tag.ID, Name: name})
	return tag
}
