package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ascai/internal/model"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)

	RecordFailedLogin(ctx context.Context, attempt *model.FailedLoginAttempt) error
	CountFailedLoginsByEmail(ctx context.Context, email string, since time.Time) (int64, error)
	CountFailedLoginsByIP(ctx context.Context, ip string, since time.Time) (int64, error)
	ClearFailedLogins(ctx context.Context, email string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user record.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update updates an existing user record.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindByID finds a user by ID.
func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns a page of users plus the total count.
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var (
		users []model.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.User{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// RecordFailedLogin stores one failed login attempt.
func (r *userRepository) RecordFailedLogin(ctx context.Context, attempt *model.FailedLoginAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// CountFailedLoginsByEmail counts recent failed attempts for an email.
func (r *userRepository) CountFailedLoginsByEmail(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.FailedLoginAttempt{}).
		Where("email = ? AND attempted_at >= ?", email, since).
		Count(&count).Error
	return count, err
}

// CountFailedLoginsByIP counts recent failed attempts from an IP address.
func (r *userRepository) CountFailedLoginsByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.FailedLoginAttempt{}).
		Where("ip_address = ? AND attempted_at >= ?", ip, since).
		Count(&count).Error
	return count, err
}

// ClearFailedLogins removes all attempts for an email after a successful login.
func (r *userRepository) ClearFailedLogins(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&model.FailedLoginAttempt{}).Error
}
