package model

import "time"

// Role defines the access level of a user. Admins inherit board permissions,
// board members inherit member permissions.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleBoard  Role = "board"
	RoleMember Role = "member"
	RolePublic Role = "public"
)

// User represents an authenticated user of the platform.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FirstName    string     `json:"first_name" gorm:"size:150;not null"`
	LastName     string     `json:"last_name" gorm:"size:150;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role       `json:"role" gorm:"size:10;not null;default:'public';index:idx_users_active_role"`
	IsActive     bool       `json:"is_active" gorm:"default:true;index:idx_users_active_role"`
	Bio          string     `json:"bio,omitempty" gorm:"type:text"`
	Phone        string     `json:"phone,omitempty" gorm:"size:20"`
	PictureURL   string     `json:"picture_url,omitempty" gorm:"size:500"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBoardMember reports whether the user holds board-level permissions.
func (u *User) IsBoardMember() bool {
	return u.Role == RoleBoard || u.IsAdmin()
}

// IsMember reports whether the user holds at least member-level permissions.
func (u *User) IsMember() bool {
	return u.Role == RoleMember || u.IsBoardMember()
}

// FailedLoginAttempt records a failed login for the lockout mechanism.
type FailedLoginAttempt struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"size:255;not null;index:idx_failed_logins_email_time"`
	IPAddress   string    `json:"ip_address" gorm:"size:45;not null;index:idx_failed_logins_ip_time"`
	UserAgent   string    `json:"user_agent,omitempty" gorm:"type:text"`
	AttemptedAt time.Time `json:"attempted_at" gorm:"autoCreateTime;index:idx_failed_logins_email_time;index:idx_failed_logins_ip_time"`
}
