package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/mailer"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// MemberProfileUpdate carries the self-service profile fields. Nil pointers
// keep the stored value.
type MemberProfileUpdate struct {
	University      *string
	Course          *string
	YearOfStudy     *int
	GraduationYear  *int
	City            *string
	CountryOfOrigin *string
	DateOfBirth     *time.Time
	ProfilePublic   *bool
	EmailPublic     *bool
	LinkedIn        *string
	Website         *string
}

// MemberService manages member profiles, applications, badges and
// subscription settings.
type MemberService interface {
	GetMember(ctx context.Context, id uuid.UUID, viewer *model.User) (*model.Member, error)
	GetMemberByUser(ctx context.Context, userID uint) (*model.Member, error)
	ListMembers(ctx context.Context, filter repository.MemberFilter, viewer *model.User) ([]model.Member, int64, error)
	UpdateMemberProfile(ctx context.Context, userID uint, update MemberProfileUpdate) (*model.Member, error)
	VerifyMember(ctx context.Context, memberID uuid.UUID, reviewer *model.User) (*model.Member, error)
	SetMemberStatus(ctx context.Context, memberID uuid.UUID, status model.MembershipStatus, reviewer *model.User) (*model.Member, error)

	Apply(ctx context.Context, userID uint, notes string) (*model.MemberApplication, error)
	ReviewApplication(ctx context.Context, applicationID uuid.UUID, approve bool, reviewNotes string, reviewer *model.User) (*model.MemberApplication, error)
	ListApplications(ctx context.Context, status model.ApplicationStatus, offset, limit int) ([]model.MemberApplication, int64, error)

	CreateBadge(ctx context.Context, badge *model.MemberBadge, actor *model.User) error
	ListBadges(ctx context.Context) ([]model.MemberBadge, error)
	AwardBadge(ctx context.Context, memberID, badgeID uuid.UUID, notes string, actor *model.User) error
	ListAchievements(ctx context.Context, memberID uuid.UUID) ([]model.MemberAchievement, error)
	EvaluateBadges(ctx context.Context, memberID uuid.UUID) error

	GetSettings(ctx context.Context) (*model.SubscriptionSettings, error)
	UpdateSettings(ctx context.Context, durationYears int, actor *model.User) (*model.SubscriptionSettings, error)
}

type memberService struct {
	members  repository.MemberRepository
	users    repository.UserRepository
	payments repository.PaymentRepository
	mailer   mailer.Service
	recorder audit.Recorder
}

// NewMemberService creates a new member service.
func NewMemberService(members repository.MemberRepository, users repository.UserRepository, payments repository.PaymentRepository, mail mailer.Service, recorder audit.Recorder) MemberService {
	return &memberService{
		members:  members,
		users:    users,
		payments: payments,
		mailer:   mail,
		recorder: recorder,
	}
}

// GetMember returns a member profile. Private profiles are only visible to
// board members and the member themselves.
func (s *memberService) GetMember(ctx context.Context, id uuid.UUID, viewer *model.User) (*model.Member, error) {
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}

	if !member.ProfilePublic {
		if viewer == nil || (!viewer.IsBoardMember() && viewer.ID != member.UserID) {
			return nil, apperrors.ErrNotFound
		}
	}
	return member, nil
}

// GetMemberByUser returns the member profile linked to a user account.
func (s *memberService) GetMemberByUser(ctx context.Context, userID uint) (*model.Member, error) {
	member, err := s.members.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return member, nil
}

// ListMembers returns the member directory. Non-board viewers only see
// public profiles and their own row; the restriction is part of the query so
// totals match the page contents.
func (s *memberService) ListMembers(ctx context.Context, filter repository.MemberFilter, viewer *model.User) ([]model.Member, int64, error) {
	if viewer == nil || !viewer.IsBoardMember() {
		filter.PublicOnly = true
		if viewer != nil {
			filter.ViewerUserID = viewer.ID
		}
	}
	return s.members.List(ctx, filter)
}

// UpdateMemberProfile applies self-service profile changes.
func (s *memberService) UpdateMemberProfile(ctx context.Context, userID uint, update MemberProfileUpdate) (*model.Member, error) {
	member, err := s.members.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}

	if update.University != nil {
		member.University = *update.University
	}
	if update.Course != nil {
		member.Course = *update.Course
	}
	if update.YearOfStudy != nil {
		member.YearOfStudy = update.YearOfStudy
	}
	if update.GraduationYear != nil {
		member.GraduationYear = update.GraduationYear
	}
	if update.City != nil {
		member.City = *update.City
	}
	if update.CountryOfOrigin != nil {
		member.CountryOfOrigin = *update.CountryOfOrigin
	}
	if update.DateOfBirth != nil {
		member.DateOfBirth = update.DateOfBirth
	}
	if update.ProfilePublic != nil {
		member.ProfilePublic = *update.ProfilePublic
	}
	if update.EmailPublic != nil {
		member.EmailPublic = *update.EmailPublic
	}
	if update.LinkedIn != nil {
		member.LinkedIn = *update.LinkedIn
	}
	if update.Website != nil {
		member.Website = *update.Website
	}

	if err := s.members.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return member, nil
}

// VerifyMember marks a member as verified by the board and re-evaluates
// automatic badges.
func (s *memberService) VerifyMember(ctx context.Context, memberID uuid.UUID, reviewer *model.User) (*model.Member, error) {
	if reviewer == nil || !reviewer.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}

	now := time.Now()
	member.IsVerified = true
	member.VerifiedAt = &now
	member.VerifiedByID = &reviewer.ID
	if err := s.members.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "member",
		EntityID: member.ID.String(),
		ActorID:  &reviewer.ID,
		Summary:  "member verified",
	})

	if err := s.EvaluateBadges(ctx, member.ID); err != nil {
		return nil, err
	}
	return member, nil
}

// SetMemberStatus changes a member's lifecycle status.
func (s *memberService) SetMemberStatus(ctx context.Context, memberID uuid.UUID, status model.MembershipStatus, reviewer *model.User) (*model.Member, error) {
	if reviewer == nil || !reviewer.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}

	previous := member.Status
	member.Status = status
	if err := s.members.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "member",
		EntityID: member.ID.String(),
		ActorID:  &reviewer.ID,
		Summary:  fmt.Sprintf("membership status %s -> %s", previous, status),
	})
	return member, nil
}

// Apply submits a membership application. A user may hold at most one pending
// application and must not already be a member.
func (s *memberService) Apply(ctx context.Context, userID uint, notes string) (*model.MemberApplication, error) {
	if _, err := s.members.FindByUserID(ctx, userID); err == nil {
		return nil, apperrors.ErrAlreadyApplied
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check member: %w", err)
	}

	pending, err := s.members.HasPendingApplication(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check pending application: %w", err)
	}
	if pending {
		return nil, apperrors.ErrAlreadyApplied
	}

	app := &model.MemberApplication{
		UserID: userID,
		Status: model.ApplicationPending,
		Notes:  notes,
	}
	if err := s.members.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "member_application",
		EntityID: app.ID.String(),
		ActorID:  &userID,
		Summary:  "membership application submitted",
	})
	return app, nil
}

// ReviewApplication settles a pending application. Approval creates the
// member profile, promotes the account to the member role and notifies the
// applicant by email.
func (s *memberService) ReviewApplication(ctx context.Context, applicationID uuid.UUID, approve bool, reviewNotes string, reviewer *model.User) (*model.MemberApplication, error) {
	if reviewer == nil || !reviewer.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	app, err := s.members.FindApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	if app.Status != model.ApplicationPending {
		return nil, apperrors.ErrApplicationReviewed
	}

	now := time.Now()
	app.ReviewedByID = &reviewer.ID
	app.ReviewedAt = &now
	app.ReviewNotes = reviewNotes

	if !approve {
		app.Status = model.ApplicationRejected
		if err := s.members.UpdateApplication(ctx, app); err != nil {
			return nil, fmt.Errorf("update application: %w", err)
		}
		s.recordReview(app, reviewer, "membership application rejected")
		s.notifyApplicant(ctx, app.UserID, false)
		return app, nil
	}

	app.Status = model.ApplicationApproved
	if err := s.members.UpdateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	member := &model.Member{
		UserID:           app.UserID,
		MembershipNumber: membershipNumber(now, app.UserID),
		Status:           model.MembershipActive,
		Category:         model.CategoryStudent,
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}

	if err := s.applySettledPayments(ctx, member); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.Role == model.RolePublic {
		user.Role = model.RoleMember
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("promote user: %w", err)
		}
	}

	s.recordReview(app, reviewer, "membership application approved")
	s.notifyApplicant(ctx, app.UserID, true)

	if err := s.EvaluateBadges(ctx, member.ID); err != nil {
		return nil, err
	}
	return app, nil
}

// membershipNumber derives a stable human-readable member number.
func membershipNumber(at time.Time, userID uint) string {
	return fmt.Sprintf("ASCAI-%d-%04d", at.Year(), userID)
}

// applySettledPayments credits membership payments completed before the
// profile existed. Each unlinked completed payment is bound to the new member
// and extends the expiry the same way a post-approval payment would: the
// configured duration past whichever is later, the payment date or the
// running expiry.
func (s *memberService) applySettledPayments(ctx context.Context, member *model.Member) error {
	history, err := s.payments.ListByUser(ctx, member.UserID)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}

	var unapplied []*model.Payment
	for i := range history {
		p := &history[i]
		if p.Type == model.PaymentMembership && p.Status == model.PaymentStatusCompleted && p.MemberID == nil {
			unapplied = append(unapplied, p)
		}
	}
	if len(unapplied) == 0 {
		return nil
	}
	sort.Slice(unapplied, func(i, j int) bool {
		return paidTime(unapplied[i]).Before(paidTime(unapplied[j]))
	})

	settings, err := s.members.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	for _, p := range unapplied {
		base := paidTime(p)
		if member.MembershipExpiry != nil && member.MembershipExpiry.After(base) {
			base = *member.MembershipExpiry
		}
		expiry := base.AddDate(settings.DefaultDurationYears, 0, 0)
		member.MembershipExpiry = &expiry

		p.MemberID = &member.ID
		if err := s.payments.Update(ctx, p); err != nil {
			return fmt.Errorf("link payment: %w", err)
		}
	}

	member.Status = model.MembershipActive
	if err := s.members.Update(ctx, member); err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

func paidTime(p *model.Payment) time.Time {
	if p.PaidAt != nil {
		return *p.PaidAt
	}
	return p.CreatedAt
}

func (s *memberService) recordReview(app *model.MemberApplication, reviewer *model.User, summary string) {
	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "member_application",
		EntityID: app.ID.String(),
		ActorID:  &reviewer.ID,
		Summary:  summary,
	})
}

func (s *memberService) notifyApplicant(ctx context.Context, userID uint, approved bool) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return
	}

	subject := "Your membership application"
	body := "Unfortunately your membership application was not approved this time."
	if approved {
		body = "Welcome aboard! Your membership application has been approved."
	}
	s.mailer.Send(&mailer.Message{
		To:       []mail.Address{{Name: user.FullName(), Address: user.Email}},
		Subject:  subject,
		TextBody: body,
	})
}

// ListApplications returns a page of applications for board review.
func (s *memberService) ListApplications(ctx context.Context, status model.ApplicationStatus, offset, limit int) ([]model.MemberApplication, int64, error) {
	return s.members.ListApplications(ctx, status, offset, limit)
}

// CreateBadge adds a badge definition to the catalogue.
func (s *memberService) CreateBadge(ctx context.Context, badge *model.MemberBadge, actor *model.User) error {
	if actor == nil || !actor.IsBoardMember() {
		return apperrors.ErrPermissionDenied
	}
	if err := s.members.CreateBadge(ctx, badge); err != nil {
		return fmt.Errorf("create badge: %w", err)
	}
	return nil
}

// ListBadges returns the badge catalogue.
func (s *memberService) ListBadges(ctx context.Context) ([]model.MemberBadge, error) {
	return s.members.ListBadges(ctx)
}

// AwardBadge manually grants a badge. Duplicate awards are ignored.
func (s *memberService) AwardBadge(ctx context.Context, memberID, badgeID uuid.UUID, notes string, actor *model.User) error {
	if actor == nil || !actor.IsBoardMember() {
		return apperrors.ErrPermissionDenied
	}

	if _, err := s.members.FindBadgeByID(ctx, badgeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find badge: %w", err)
	}

	has, err := s.members.HasAchievement(ctx, memberID, badgeID)
	if err != nil {
		return fmt.Errorf("check achievement: %w", err)
	}
	if has {
		return nil
	}

	achievement := &model.MemberAchievement{
		MemberID: memberID,
		BadgeID:  badgeID,
		Notes:    notes,
	}
	if err := s.members.CreateAchievement(ctx, achievement); err != nil {
		return fmt.Errorf("create achievement: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "member_achievement",
		EntityID: achievement.ID.String(),
		ActorID:  &actor.ID,
		Summary:  "badge awarded",
	})
	return nil
}

// ListAchievements returns a member's earned badges.
func (s *memberService) ListAchievements(ctx context.Context, memberID uuid.UUID) ([]model.MemberAchievement, error) {
	return s.members.ListAchievements(ctx, memberID)
}

// EvaluateBadges awards automatic badges the member has newly qualified for:
// active membership, board verification, one year of membership and alumni
// status. Awards are idempotent.
func (s *memberService) EvaluateBadges(ctx context.Context, memberID uuid.UUID) error {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find member: %w", err)
	}

	type criterion struct {
		qualifies  bool
		nameSubstr string
	}
	criteria := []criterion{
		{member.IsActiveMember(), "Active"},
		{member.IsVerified, "Verified"},
		{time.Since(member.JoinedAt) >= 365 * 24 * time.Hour, "Year"},
		{member.Category == model.CategoryAlumni, "Alumni"},
	}

	for _, c := range criteria {
		if !c.qualifies {
			continue
		}
		badge, err := s.members.FindBadgeLike(ctx, model.BadgeMembership, c.nameSubstr)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fmt.Errorf("find badge: %w", err)
		}

		has, err := s.members.HasAchievement(ctx, member.ID, badge.ID)
		if err != nil {
			return fmt.Errorf("check achievement: %w", err)
		}
		if has {
			continue
		}
		achievement := &model.MemberAchievement{MemberID: member.ID, BadgeID: badge.ID}
		if err := s.members.CreateAchievement(ctx, achievement); err != nil {
			return fmt.Errorf("create achievement: %w", err)
		}
	}
	return nil
}

// GetSettings returns the subscription settings singleton.
func (s *memberService) GetSettings(ctx context.Context) (*model.SubscriptionSettings, error) {
	return s.members.LoadSettings(ctx)
}

// UpdateSettings changes the default subscription duration. Admin only.
func (s *memberService) UpdateSettings(ctx context.Context, durationYears int, actor *model.User) (*model.SubscriptionSettings, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperrors.ErrPermissionDenied
	}
	if durationYears < 1 {
		return nil, apperrors.NewHTTPError(http.StatusBadRequest, "duration must be at least one year", "INVALID_DURATION")
	}

	settings, err := s.members.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings.DefaultDurationYears = durationYears
	settings.UpdatedByID = &actor.ID
	if err := s.members.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditUpdate,
		Entity:   "subscription_settings",
		EntityID: "1",
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("default duration set to %d years", durationYears),
	})
	return settings, nil
}
