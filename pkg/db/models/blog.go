package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielvega/portfolio-backend/pkg/events"
)

// Blog is a published entry owned by a user.
type Blog struct {
	events.Recorder `gorm:"-"`

	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"type:text;not null;uniqueIndex:ux_blogs_title"`
	Content   string    `gorm:"type:text;not null"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Tags      []Tag     `gorm:"many2many:blog_tags;"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PublishBlog builds a blog entry and buffers its published event.
func PublishBlog(title, content string, authorID uuid.UUID, tags []Tag) *Blog {
	blog := &Blog{
		ID:       uuid.New(),
		Title:    title,
		Content:  content,
		AuthorID: authorID,
		Tags:     tags,
	}
	blog.Raise(events.BlogPublished{BlogID: blog.ID, AuthorID: authorID, Title: title})
	return blog
}
