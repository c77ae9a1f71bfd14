package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/model"
)

// JobFilter narrows job board listings.
type JobFilter struct {
	Type       model.JobType
	Location   string
	Search     string
	ActiveOnly bool
	Offset     int
	Limit      int
}

// JobRepository defines persistence for job postings and applications.
type JobRepository interface {
	Create(ctx context.Context, job *model.JobPosting) error
	Update(ctx context.Context, job *model.JobPosting) error
	Delete(ctx context.Context, job *model.JobPosting) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.JobPosting, error)
	FindBySlug(ctx context.Context, slug string) (*model.JobPosting, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter JobFilter) ([]model.JobPosting, int64, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	CreateApplication(ctx context.Context, app *model.JobApplication) error
	UpdateApplication(ctx context.Context, app *model.JobApplication) error
	FindApplicationByID(ctx context.Context, id uuid.UUID) (*model.JobApplication, error)
	HasApplied(ctx context.Context, jobID uuid.UUID, applicantID uint) (bool, error)
	ListApplications(ctx context.Context, jobID uuid.UUID, offset, limit int) ([]model.JobApplication, int64, error)
	ListApplicationsByUser(ctx context.Context, applicantID uint) ([]model.JobApplication, error)
}

type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *model.JobPosting) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) Update(ctx context.Context, job *model.JobPosting) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *jobRepository) Delete(ctx context.Context, job *model.JobPosting) error {
	return r.db.WithContext(ctx).Delete(job).Error
}

func (r *jobRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.JobPosting, error) {
	var job model.JobPosting
	if err := r.db.WithContext(ctx).Preload("PostedBy").Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) FindBySlug(ctx context.Context, slug string) (*model.JobPosting, error) {
	var job model.JobPosting
	if err := r.db.WithContext(ctx).Preload("PostedBy").Where("slug = ?", slug).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.JobPosting{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// List returns a page of postings matching the filter plus the total count.
func (r *jobRepository) List(ctx context.Context, filter JobFilter) ([]model.JobPosting, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.JobPosting{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Location != "" {
		q = q.Where("location LIKE ?", "%"+filter.Location+"%")
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR company_name LIKE ? OR description LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []model.JobPosting
	err := q.Preload("PostedBy").
		Order("created_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// IncrementViewCount bumps the view counter without loading the row.
func (r *jobRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.JobPosting{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *jobRepository) CreateApplication(ctx context.Context, app *model.JobApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *jobRepository) UpdateApplication(ctx context.Context, app *model.JobApplication) error {
	return r.db.WithContext(ctx).Save(app).Error
}

func (r *jobRepository) FindApplicationByID(ctx context.Context, id uuid.UUID) (*model.JobApplication, error) {
	var app model.JobApplication
	if err := r.db.WithContext(ctx).Preload("Applicant").Preload("Job").Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// HasApplied reports whether the user already applied to the posting.
func (r *jobRepository) HasApplied(ctx context.Context, jobID uuid.UUID, applicantID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.JobApplication{}).
		Where("job_id = ? AND applicant_id = ?", jobID, applicantID).
		Count(&count).Error
	return count > 0, err
}

func (r *jobRepository) ListApplications(ctx context.Context, jobID uuid.UUID, offset, limit int) ([]model.JobApplication, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.JobApplication{}).Where("job_id = ?", jobID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []model.JobApplication
	err := q.Preload("Applicant").Order("applied_at ASC").Offset(offset).Limit(limit).Find(&apps).Error
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *jobRepository) ListApplicationsByUser(ctx context.Context, applicantID uint) ([]model.JobApplication, error) {
	var apps []model.JobApplication
	err := r.db.WithContext(ctx).
		Preload("Job").
		Where("applicant_id = ?", applicantID).
		Order("applied_at DESC").
		Find(&apps).Error
	return apps, err
}
