package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewsCategory groups news posts.
type NewsCategory struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Slug        string    `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *NewsCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NewsType is a coarse classification independent of the category relation.
type NewsType string

const (
	NewsImportant NewsType = "important"
	NewsGeneral   NewsType = "general"
	NewsAcademic  NewsType = "academic"
	NewsCultural  NewsType = "cultural"
	NewsSocial    NewsType = "social"
)

// NewsPost is a news article or announcement.
type NewsPost struct {
	ID      uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Title   string    `json:"title" gorm:"size:200;not null"`
	Slug    string    `json:"slug" gorm:"size:200;uniqueIndex;not null"`
	Content string    `json:"content" gorm:"type:text;not null"`
	Excerpt string    `json:"excerpt,omitempty" gorm:"size:500"`

	AuthorID   uint       `json:"author_id" gorm:"not null;index"`
	CategoryID *uuid.UUID `json:"category_id,omitempty" gorm:"type:char(36);index"`
	Type       NewsType   `json:"type" gorm:"size:20;not null;default:'general'"`
	Visibility Visibility `json:"visibility" gorm:"size:10;not null;default:'public';index"`

	ImageURL    string     `json:"image_url,omitempty" gorm:"size:500"`
	IsPublished bool       `json:"is_published" gorm:"default:false;index"`
	PublishedAt *time.Time `json:"published_at,omitempty" gorm:"index"`
	ViewCount   int        `json:"view_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Author   User          `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Category *NewsCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *NewsPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CanView reports whether the user clears the post's visibility tier.
func (p *NewsPost) CanView(u *User) bool {
	return p.Visibility.VisibleTo(u)
}
