package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessLevel restricts who can open a document folder.
type AccessLevel string

const (
	AccessPublic  AccessLevel = "public"
	AccessMembers AccessLevel = "members"
	AccessBoard   AccessLevel = "board"
	AccessAdmin   AccessLevel = "admin"
)

// Grants reports whether a user (nil for anonymous) clears the access level.
func (l AccessLevel) Grants(u *User) bool {
	switch l {
	case AccessPublic:
		return true
	case AccessMembers:
		return u != nil && u.IsMember()
	case AccessBoard:
		return u != nil && u.IsBoardMember()
	case AccessAdmin:
		return u != nil && u.IsAdmin()
	}
	return false
}

// DocumentTag labels documents for filtering.
type DocumentTag struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name" gorm:"size:50;uniqueIndex;not null"`
	Slug      string    `json:"slug" gorm:"size:50;uniqueIndex;not null"`
	Color     string    `json:"color" gorm:"size:7;default:'#007bff'"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (t *DocumentTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// DocumentFolder organizes documents hierarchically. Access is controlled per
// folder; a document inherits its folder's level.
type DocumentFolder struct {
	ID          uuid.UUID   `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string      `json:"name" gorm:"size:200;not null"`
	Slug        string      `json:"slug" gorm:"size:200;not null;uniqueIndex:idx_folders_parent_slug"`
	Description string      `json:"description,omitempty" gorm:"type:text"`
	ParentID    *uuid.UUID  `json:"parent_id,omitempty" gorm:"type:char(36);uniqueIndex:idx_folders_parent_slug;index"`
	AccessLevel AccessLevel `json:"access_level" gorm:"size:10;not null;default:'members'"`
	CreatedByID *uint       `json:"created_by_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Relations
	Parent *DocumentFolder `json:"-" gorm:"foreignKey:ParentID"`
}

// BeforeCreate sets UUID before creating the record.
func (f *DocumentFolder) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// CanAccess reports whether the user clears the folder's access level.
func (f *DocumentFolder) CanAccess(u *User) bool {
	return f.AccessLevel.Grants(u)
}

// CanEdit reports whether the user may modify the folder.
func (f *DocumentFolder) CanEdit(u *User) bool {
	return u != nil && u.IsBoardMember()
}

// CanDelete reports whether the user may remove the folder. Admins always can,
// board members only for folders they created.
func (f *DocumentFolder) CanDelete(u *User) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin() {
		return true
	}
	return u.IsBoardMember() && f.CreatedByID != nil && *f.CreatedByID == u.ID
}

// Document holds file metadata; bytes live in external storage under StorageKey.
type Document struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Description string     `json:"description,omitempty" gorm:"type:text"`
	FileName    string     `json:"file_name" gorm:"size:255;not null"`
	FileSize    int64      `json:"file_size" gorm:"not null"`
	ContentType string     `json:"content_type" gorm:"size:100;not null"`
	StorageKey  string     `json:"-" gorm:"size:500;not null"`
	FolderID    *uuid.UUID `json:"folder_id,omitempty" gorm:"type:char(36);index"`

	UploadedByID  *uint     `json:"uploaded_by_id,omitempty"`
	DownloadCount int       `json:"download_count" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relations
	Folder *DocumentFolder `json:"folder,omitempty" gorm:"foreignKey:FolderID"`
	Tags   []DocumentTag   `json:"tags,omitempty" gorm:"many2many:document_tag_links"`
}

// BeforeCreate sets UUID before creating the record.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// CanAccess resolves through the folder; folderless documents are members-only.
func (d *Document) CanAccess(u *User) bool {
	if d.Folder != nil {
		return d.Folder.CanAccess(u)
	}
	return AccessMembers.Grants(u)
}
