package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JobType classifies a job posting.
type JobType string

const (
	JobFullTime   JobType = "full_time"
	JobPartTime   JobType = "part_time"
	JobInternship JobType = "internship"
	JobContract   JobType = "contract"
	JobTemporary  JobType = "temporary"
)

// JobPosting is an opening published on the job board.
type JobPosting struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title" gorm:"size:200;not null"`
	Slug        string    `json:"slug" gorm:"size:200;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	CompanyName string    `json:"company_name" gorm:"size:200;not null"`
	Location    string    `json:"location" gorm:"size:200;not null;index"`
	Type        JobType   `json:"type" gorm:"size:20;not null;default:'full_time';index"`

	SalaryMin *decimal.Decimal `json:"salary_min,omitempty" gorm:"type:decimal(10,2)"`
	SalaryMax *decimal.Decimal `json:"salary_max,omitempty" gorm:"type:decimal(10,2)"`

	Requirements string     `json:"requirements,omitempty" gorm:"type:text"`
	PostedByID   uint       `json:"posted_by_id" gorm:"not null;index"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	IsActive     bool       `json:"is_active" gorm:"default:true;index:idx_jobs_active_posted"`
	ViewCount    int        `json:"view_count" gorm:"default:0"`
	CreatedAt    time.Time  `json:"created_at" gorm:"index:idx_jobs_active_posted"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	PostedBy User `json:"posted_by,omitempty" gorm:"foreignKey:PostedByID"`
}

// BeforeCreate sets UUID before creating the record.
func (j *JobPosting) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// CanApply reports whether the posting still accepts applications.
func (j *JobPosting) CanApply(now time.Time) bool {
	if !j.IsActive {
		return false
	}
	if j.Deadline != nil && now.After(*j.Deadline) {
		return false
	}
	return true
}

// ApplicationReviewStatus represents the employer-side state of an application.
type ApplicationReviewStatus string

const (
	JobApplicationPending  ApplicationReviewStatus = "pending"
	JobApplicationReviewed ApplicationReviewStatus = "reviewed"
	JobApplicationAccepted ApplicationReviewStatus = "accepted"
	JobApplicationRejected ApplicationReviewStatus = "rejected"
)

// JobApplication links an applicant to a posting. One per user per posting.
type JobApplication struct {
	ID          uuid.UUID               `json:"id" gorm:"type:char(36);primaryKey"`
	JobID       uuid.UUID               `json:"job_id" gorm:"type:char(36);not null;uniqueIndex:idx_applications_job_applicant"`
	ApplicantID uint                    `json:"applicant_id" gorm:"not null;uniqueIndex:idx_applications_job_applicant"`
	CoverLetter string                  `json:"cover_letter,omitempty" gorm:"type:text"`
	ResumeURL   string                  `json:"resume_url" gorm:"size:500;not null"`
	Status      ApplicationReviewStatus `json:"status" gorm:"size:20;not null;default:'pending';index"`
	AppliedAt   time.Time               `json:"applied_at" gorm:"autoCreateTime;index"`
	ReviewedAt  *time.Time              `json:"reviewed_at,omitempty"`
	Notes       string                  `json:"-" gorm:"type:text"` // internal notes for the employer

	// Relations
	Job       JobPosting `json:"-" gorm:"foreignKey:JobID"`
	Applicant User       `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *JobApplication) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
