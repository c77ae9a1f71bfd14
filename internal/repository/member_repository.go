package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/model"
)

// MemberFilter narrows member listings.
type MemberFilter struct {
	Status   model.MembershipStatus
	Category model.MemberCategory
	Search   string // matches university, course or city

	// PublicOnly limits results to public profiles; ViewerUserID exempts the
	// viewer's own row so members always find themselves in the directory.
	PublicOnly   bool
	ViewerUserID uint

	Offset int
	Limit  int
}

// MemberRepository defines persistence for member profiles, applications,
// badges and subscription settings.
type MemberRepository interface {
	Create(ctx context.Context, member *model.Member) error
	Update(ctx context.Context, member *model.Member) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	FindByUserID(ctx context.Context, userID uint) (*model.Member, error)
	List(ctx context.Context, filter MemberFilter) ([]model.Member, int64, error)

	CreateApplication(ctx context.Context, app *model.MemberApplication) error
	UpdateApplication(ctx context.Context, app *model.MemberApplication) error
	FindApplicationByID(ctx context.Context, id uuid.UUID) (*model.MemberApplication, error)
	ListApplications(ctx context.Context, status model.ApplicationStatus, offset, limit int) ([]model.MemberApplication, int64, error)
	HasPendingApplication(ctx context.Context, userID uint) (bool, error)

	CreateBadge(ctx context.Context, badge *model.MemberBadge) error
	ListBadges(ctx context.Context) ([]model.MemberBadge, error)
	FindBadgeByID(ctx context.Context, id uuid.UUID) (*model.MemberBadge, error)
	FindBadgeLike(ctx context.Context, category model.BadgeCategory, nameSubstr string) (*model.MemberBadge, error)

	HasAchievement(ctx context.Context, memberID, badgeID uuid.UUID) (bool, error)
	CreateAchievement(ctx context.Context, achievement *model.MemberAchievement) error
	ListAchievements(ctx context.Context, memberID uuid.UUID) ([]model.MemberAchievement, error)

	LoadSettings(ctx context.Context) (*model.SubscriptionSettings, error)
	SaveSettings(ctx context.Context, settings *model.SubscriptionSettings) error
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository.
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *model.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepository) Update(ctx context.Context, member *model.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

func (r *memberRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	var member model.Member
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) FindByUserID(ctx context.Context, userID uint) (*model.Member, error) {
	var member model.Member
	if err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// List returns a page of members matching the filter plus the total count.
func (r *memberRepository) List(ctx context.Context, filter MemberFilter) ([]model.Member, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Member{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("university LIKE ? OR course LIKE ? OR city LIKE ?", like, like, like)
	}
	if filter.PublicOnly {
		if filter.ViewerUserID != 0 {
			q = q.Where("profile_public = ? OR user_id = ?", true, filter.ViewerUserID)
		} else {
			q = q.Where("profile_public = ?", true)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var members []model.Member
	err := q.Preload("User").
		Order("joined_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&members).Error
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (r *memberRepository) CreateApplication(ctx context.Context, app *model.MemberApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *memberRepository) UpdateApplication(ctx context.Context, app *model.MemberApplication) error {
	return r.db.WithContext(ctx).Save(app).Error
}

func (r *memberRepository) FindApplicationByID(ctx context.Context, id uuid.UUID) (*model.MemberApplication, error) {
	var app model.MemberApplication
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *memberRepository) ListApplications(ctx context.Context, status model.ApplicationStatus, offset, limit int) ([]model.MemberApplication, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MemberApplication{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []model.MemberApplication
	err := q.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// HasPendingApplication reports whether the user already has an open application.
func (r *memberRepository) HasPendingApplication(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MemberApplication{}).
		Where("user_id = ? AND status = ?", userID, model.ApplicationPending).
		Count(&count).Error
	return count > 0, err
}

func (r *memberRepository) CreateBadge(ctx context.Context, badge *model.MemberBadge) error {
	return r.db.WithContext(ctx).Create(badge).Error
}

func (r *memberRepository) ListBadges(ctx context.Context) ([]model.MemberBadge, error) {
	var badges []model.MemberBadge
	err := r.db.WithContext(ctx).Order("category, name").Find(&badges).Error
	return badges, err
}

func (r *memberRepository) FindBadgeByID(ctx context.Context, id uuid.UUID) (*model.MemberBadge, error) {
	var badge model.MemberBadge
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// FindBadgeLike finds a badge in a category whose name contains the substring.
func (r *memberRepository) FindBadgeLike(ctx context.Context, category model.BadgeCategory, nameSubstr string) (*model.MemberBadge, error) {
	var badge model.MemberBadge
	err := r.db.WithContext(ctx).
		Where("category = ? AND name LIKE ?", category, "%"+nameSubstr+"%").
		First(&badge).Error
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *memberRepository) HasAchievement(ctx context.Context, memberID, badgeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MemberAchievement{}).
		Where("member_id = ? AND badge_id = ?", memberID, badgeID).
		Count(&count).Error
	return count > 0, err
}

func (r *memberRepository) CreateAchievement(ctx context.Context, achievement *model.MemberAchievement) error {
	return r.db.WithContext(ctx).Create(achievement).Error
}

func (r *memberRepository) ListAchievements(ctx context.Context, memberID uuid.UUID) ([]model.MemberAchievement, error) {
	var achievements []model.MemberAchievement
	err := r.db.WithContext(ctx).
		Preload("Badge").
		Where("member_id = ?", memberID).
		Order("earned_at DESC").
		Find(&achievements).Error
	return achievements, err
}

// LoadSettings returns the singleton settings row, creating it with defaults
// on first access.
func (r *memberRepository) LoadSettings(ctx context.Context) (*model.SubscriptionSettings, error) {
	settings := model.SubscriptionSettings{ID: 1, DefaultDurationYears: 2}
	if err := r.db.WithContext(ctx).FirstOrCreate(&settings, model.SubscriptionSettings{ID: 1}).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *memberRepository) SaveSettings(ctx context.Context, settings *model.SubscriptionSettings) error {
	settings.ID = 1 // singleton
	return r.db.WithContext(ctx).Save(settings).Error
}
