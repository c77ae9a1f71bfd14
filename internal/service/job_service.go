package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/mailer"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// JobInput carries the editable fields of a job posting.
type JobInput struct {
	Title        string
	Description  string
	CompanyName  string
	Location     string
	Type         model.JobType
	SalaryMin    *decimal.Decimal
	SalaryMax    *decimal.Decimal
	Requirements string
	Deadline     *time.Time
}

// JobService manages the job board: postings and applications.
type JobService interface {
	CreateJob(ctx context.Context, input JobInput, poster *model.User) (*model.JobPosting, error)
	UpdateJob(ctx context.Context, id uuid.UUID, input JobInput, actor *model.User) (*model.JobPosting, error)
	CloseJob(ctx context.Context, id uuid.UUID, actor *model.User) (*model.JobPosting, error)
	DeleteJob(ctx context.Context, id uuid.UUID, actor *model.User) error
	GetJob(ctx context.Context, jobSlug string) (*model.JobPosting, error)
	ListJobs(ctx context.Context, filter repository.JobFilter) ([]model.JobPosting, int64, error)

	Apply(ctx context.Context, jobID uuid.UUID, applicant *model.User, coverLetter, resumeURL string) (*model.JobApplication, error)
	ReviewApplication(ctx context.Context, applicationID uuid.UUID, status model.ApplicationReviewStatus, notes string, actor *model.User) (*model.JobApplication, error)
	ListApplications(ctx context.Context, jobID uuid.UUID, actor *model.User, offset, limit int) ([]model.JobApplication, int64, error)
	ListUserApplications(ctx context.Context, applicantID uint) ([]model.JobApplication, error)
}

type jobService struct {
	jobs     repository.JobRepository
	mailer   mailer.Service
	recorder audit.Recorder
}

// NewJobService creates a new job service.
func NewJobService(jobs repository.JobRepository, mail mailer.Service, recorder audit.Recorder) JobService {
	return &jobService{
		jobs:     jobs,
		mailer:   mail,
		recorder: recorder,
	}
}

// CreateJob publishes a job posting. Board only.
func (s *jobService) CreateJob(ctx context.Context, input JobInput, poster *model.User) (*model.JobPosting, error) {
	if poster == nil || !poster.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	jobSlug, err := s.uniqueSlug(ctx, input.Title)
	if err != nil {
		return nil, err
	}

	job := &model.JobPosting{
		Title:        input.Title,
		Slug:         jobSlug,
		Description:  input.Description,
		CompanyName:  input.CompanyName,
		Location:     input.Location,
		Type:         input.Type,
		SalaryMin:    input.SalaryMin,
		SalaryMax:    input.SalaryMax,
		Requirements: input.Requirements,
		PostedByID:   poster.ID,
		Deadline:     input.Deadline,
		IsActive:     true,
	}
	if job.Type == "" {
		job.Type = model.JobFullTime
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "job_posting",
		EntityID: job.ID.String(),
		ActorID:  &poster.ID,
		Summary:  fmt.Sprintf("job %q at %s posted", job.Title, job.CompanyName),
	})
	return job, nil
}

func (s *jobService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.jobs.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// UpdateJob applies changes. Poster or admin only.
func (s *jobService) UpdateJob(ctx context.Context, id uuid.UUID, input JobInput, actor *model.User) (*model.JobPosting, error) {
	job, err := s.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageJob(job, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	if input.Title != "" {
		job.Title = input.Title
	}
	if input.Description != "" {
		job.Description = input.Description
	}
	if input.CompanyName != "" {
		job.CompanyName = input.CompanyName
	}
	if input.Location != "" {
		job.Location = input.Location
	}
	if input.Type != "" {
		job.Type = input.Type
	}
	if input.SalaryMin != nil {
		job.SalaryMin = input.SalaryMin
	}
	if input.SalaryMax != nil {
		job.SalaryMax = input.SalaryMax
	}
	if input.Requirements != "" {
		job.Requirements = input.Requirements
	}
	if input.Deadline != nil {
		job.Deadline = input.Deadline
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditUpdate,
		Entity:   "job_posting",
		EntityID: job.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("job %q updated", job.Title),
	})
	return job, nil
}

// CloseJob deactivates a posting so it stops accepting applications.
func (s *jobService) CloseJob(ctx context.Context, id uuid.UUID, actor *model.User) (*model.JobPosting, error) {
	job, err := s.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageJob(job, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	job.IsActive = false
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "job_posting",
		EntityID: job.ID.String(),
		ActorID:  &actor.ID,
		Summary:  "job closed",
	})
	return job, nil
}

// DeleteJob removes a posting. Admin only.
func (s *jobService) DeleteJob(ctx context.Context, id uuid.UUID, actor *model.User) error {
	if actor == nil || !actor.IsAdmin() {
		return apperrors.ErrPermissionDenied
	}

	job, err := s.findJob(ctx, id)
	if err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, job); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditDelete,
		Entity:   "job_posting",
		EntityID: job.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("job %q deleted", job.Title),
	})
	return nil
}

func (s *jobService) findJob(ctx context.Context, id uuid.UUID) (*model.JobPosting, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find job: %w", err)
	}
	return job, nil
}

func canManageJob(job *model.JobPosting, actor *model.User) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return actor.IsBoardMember() && job.PostedByID == actor.ID
}

// GetJob resolves a posting by slug and counts the view.
func (s *jobService) GetJob(ctx context.Context, jobSlug string) (*model.JobPosting, error) {
	job, err := s.jobs.FindBySlug(ctx, jobSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find job: %w", err)
	}

	if err := s.jobs.IncrementViewCount(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}
	return job, nil
}

// ListJobs returns a filtered page of postings.
func (s *jobService) ListJobs(ctx context.Context, filter repository.JobFilter) ([]model.JobPosting, int64, error) {
	return s.jobs.List(ctx, filter)
}

// Apply submits an application. The posting must still be open and the
// applicant may apply at most once, cancelled or not.
func (s *jobService) Apply(ctx context.Context, jobID uuid.UUID, applicant *model.User, coverLetter, resumeURL string) (*model.JobApplication, error) {
	if applicant == nil || !applicant.IsMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.CanApply(time.Now()) {
		return nil, apperrors.ErrApplicationsClosed
	}

	applied, err := s.jobs.HasApplied(ctx, jobID, applicant.ID)
	if err != nil {
		return nil, fmt.Errorf("check application: %w", err)
	}
	if applied {
		return nil, apperrors.ErrAlreadyApplied
	}

	app := &model.JobApplication{
		JobID:       jobID,
		ApplicantID: applicant.ID,
		CoverLetter: coverLetter,
		ResumeURL:   resumeURL,
		Status:      model.JobApplicationPending,
	}
	if err := s.jobs.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "job_application",
		EntityID: app.ID.String(),
		ActorID:  &applicant.ID,
		Summary:  fmt.Sprintf("application for %q submitted", job.Title),
	})
	return app, nil
}

// ReviewApplication updates an application's review state and notifies the
// applicant on acceptance or rejection.
func (s *jobService) ReviewApplication(ctx context.Context, applicationID uuid.UUID, status model.ApplicationReviewStatus, notes string, actor *model.User) (*model.JobApplication, error) {
	app, err := s.jobs.FindApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}

	if !canManageJob(&app.Job, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	now := time.Now()
	app.Status = status
	app.ReviewedAt = &now
	app.Notes = notes
	if err := s.jobs.UpdateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "job_application",
		EntityID: app.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("application marked %s", status),
	})

	if status == model.JobApplicationAccepted || status == model.JobApplicationRejected {
		s.notifyApplicant(app, status)
	}
	return app, nil
}

func (s *jobService) notifyApplicant(app *model.JobApplication, status model.ApplicationReviewStatus) {
	if app.Applicant.Email == "" {
		return
	}
	body := fmt.Sprintf("Your application for %q was not selected this time.", app.Job.Title)
	if status == model.JobApplicationAccepted {
		body = fmt.Sprintf("Congratulations! Your application for %q has been accepted. The company will contact you with next steps.", app.Job.Title)
	}
	s.mailer.Send(&mailer.Message{
		To:       []mail.Address{{Name: app.Applicant.FullName(), Address: app.Applicant.Email}},
		Subject:  fmt.Sprintf("Update on your application for %s", app.Job.Title),
		TextBody: body,
	})
}

// ListApplications returns a posting's applications for its manager.
func (s *jobService) ListApplications(ctx context.Context, jobID uuid.UUID, actor *model.User, offset, limit int) ([]model.JobApplication, int64, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}
	if !canManageJob(job, actor) {
		return nil, 0, apperrors.ErrPermissionDenied
	}
	return s.jobs.ListApplications(ctx, jobID, offset, limit)
}

// ListUserApplications returns the applicant's own applications.
func (s *jobService) ListUserApplications(ctx context.Context, applicantID uint) ([]model.JobApplication, error) {
	return s.jobs.ListApplicationsByUser(ctx, applicantID)
}
