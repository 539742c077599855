package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the draft/published lifecycle flag of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "DF"
	StatusPublished PostStatus = "PB"
)

// PostStatuses lists the valid statuses in display order.
var PostStatuses = []PostStatus{StatusDraft, StatusPublished}

// Label returns the human readable name of the status.
func (s PostStatus) Label() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusPublished:
		return "Published"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Max lengths of bounded text columns.
const (
	TitleMaxLength = 250
	SlugMaxLength  = 250
)

// Post is a blog article. Slugs are indexed but intentionally not unique.
type Post struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	Title    string     `gorm:"size:250;not null" json:"title"`
	Slug     string     `gorm:"size:250;not null;index" json:"slug"`
	AuthorID uint       `gorm:"index;not null" json:"author_id"`
	Author   User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Body     string     `gorm:"type:text;not null" json:"body"`
	Publish  time.Time  `gorm:"not null;index:idx_blog_posts_publish,sort:desc" json:"publish"`
	Created  time.Time  `gorm:"not null;<-:create" json:"created"`
	Updated  time.Time  `gorm:"not null" json:"updated"`
	Status   PostStatus `gorm:"size:2;not null;default:'DF'" json:"status"`
}

// TableName pins the table name so it does not follow the struct name.
func (Post) TableName() string {
	return "blog_posts"
}

func (p Post) String() string {
	return p.Title
}

// IsPublished reports whether the post is visible on the public site.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// BeforeCreate stamps created/updated and defaults publish to the creation time.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	p.Created = now
	p.Updated = now
	if p.Publish.IsZero() {
		p.Publish = now
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	return nil
}

// BeforeUpdate refreshes the Updated timestamp on every save.
func (p *Post) BeforeUpdate(tx *gorm.DB) error {
	p.Updated = time.Now()
	return nil
}

// DefaultOrder applies the model's default ordering: newest publish date first.
func DefaultOrder(db *gorm.DB) *gorm.DB {
	return db.Order("publish DESC")
}

// Published restricts a query to published posts in default order.
func Published(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", StatusPublished).Scopes(DefaultOrder)
}
