package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/model"
	"ascai/internal/repository"
)

func newTestMemberService(members *MockMemberRepository, users *MockUserRepository, payments *MockPaymentRepository, mail *MockMailer) MemberService {
	return NewMemberService(members, users, payments, mail, audit.Nop{})
}

func TestMemberService_Apply(t *testing.T) {
	t.Run("submits pending application", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		members.On("FindByUserID", mock.Anything, uint(3)).Return(nil, gorm.ErrRecordNotFound)
		members.On("HasPendingApplication", mock.Anything, uint(3)).Return(false, nil)
		members.On("CreateApplication", mock.Anything, mock.AnythingOfType("*model.MemberApplication")).Return(nil)

		app, err := svc.Apply(context.Background(), 3, "please let me in")
		assert.NoError(t, err)
		assert.Equal(t, model.ApplicationPending, app.Status)
		assert.Equal(t, uint(3), app.UserID)
	})

	t.Run("existing member cannot apply", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		members.On("FindByUserID", mock.Anything, uint(3)).Return(&model.Member{ID: uuid.New(), UserID: 3}, nil)

		_, err := svc.Apply(context.Background(), 3, "")
		assert.ErrorIs(t, err, apperrors.ErrAlreadyApplied)
		members.AssertNotCalled(t, "CreateApplication", mock.Anything, mock.Anything)
	})

	t.Run("only one pending application at a time", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		members.On("FindByUserID", mock.Anything, uint(3)).Return(nil, gorm.ErrRecordNotFound)
		members.On("HasPendingApplication", mock.Anything, uint(3)).Return(true, nil)

		_, err := svc.Apply(context.Background(), 3, "")
		assert.ErrorIs(t, err, apperrors.ErrAlreadyApplied)
	})
}

func TestMemberService_ReviewApplication_Approve(t *testing.T) {
	members := new(MockMemberRepository)
	users := new(MockUserRepository)
	payments := new(MockPaymentRepository)
	mail := new(MockMailer)
	svc := newTestMemberService(members, users, payments, mail)

	app := &model.MemberApplication{ID: uuid.New(), UserID: 3, Status: model.ApplicationPending}
	applicant := memberUser(3)
	applicant.Role = model.RolePublic
	memberID := uuid.New()

	members.On("FindApplicationByID", mock.Anything, app.ID).Return(app, nil)
	members.On("UpdateApplication", mock.Anything, app).Return(nil)
	members.On("Create", mock.Anything, mock.AnythingOfType("*model.Member")).Run(func(args mock.Arguments) {
		m := args.Get(1).(*model.Member)
		m.ID = memberID
	}).Return(nil)
	payments.On("ListByUser", mock.Anything, uint(3)).Return([]model.Payment{}, nil)
	users.On("FindByID", mock.Anything, uint(3)).Return(applicant, nil)
	users.On("Update", mock.Anything, applicant).Return(nil)
	mail.On("Send", mock.Anything).Return()

	// Badge evaluation: the fresh member only qualifies as active.
	members.On("FindByID", mock.Anything, memberID).Return(&model.Member{
		ID:       memberID,
		UserID:   3,
		Status:   model.MembershipActive,
		JoinedAt: time.Now(),
		Category: model.CategoryStudent,
	}, nil)
	activeBadge := &model.MemberBadge{ID: uuid.New(), Name: "Active Member", Category: model.BadgeMembership}
	members.On("FindBadgeLike", mock.Anything, model.BadgeMembership, "Active").Return(activeBadge, nil)
	members.On("FindBadgeLike", mock.Anything, model.BadgeMembership, mock.Anything).Return(nil, gorm.ErrRecordNotFound).Maybe()
	members.On("HasAchievement", mock.Anything, memberID, activeBadge.ID).Return(false, nil)
	members.On("CreateAchievement", mock.Anything, mock.AnythingOfType("*model.MemberAchievement")).Return(nil)

	reviewed, err := svc.ReviewApplication(context.Background(), app.ID, true, "looks good", boardUser(9))
	assert.NoError(t, err)
	assert.Equal(t, model.ApplicationApproved, reviewed.Status)
	assert.NotNil(t, reviewed.ReviewedAt)
	assert.Equal(t, "looks good", reviewed.ReviewNotes)

	assert.Equal(t, model.RoleMember, applicant.Role)
	members.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(m *model.Member) bool {
		return m.UserID == 3 &&
			m.Status == model.MembershipActive &&
			m.MembershipNumber == fmt.Sprintf("ASCAI-%d-0003", time.Now().Year())
	}))
	mail.AssertCalled(t, "Send", mock.Anything)
}

func TestMemberService_ReviewApplication_AppliesPriorPayments(t *testing.T) {
	members := new(MockMemberRepository)
	users := new(MockUserRepository)
	payments := new(MockPaymentRepository)
	mail := new(MockMailer)
	svc := newTestMemberService(members, users, payments, mail)

	app := &model.MemberApplication{ID: uuid.New(), UserID: 3, Status: model.ApplicationPending}
	applicant := memberUser(3)
	memberID := uuid.New()

	paidAt := time.Now().Add(-72 * time.Hour)
	paid := model.Payment{
		ID:     uuid.New(),
		UserID: 3,
		Amount: MembershipFee,
		Type:   model.PaymentMembership,
		Status: model.PaymentStatusCompleted,
		PaidAt: &paidAt,
	}

	members.On("FindApplicationByID", mock.Anything, app.ID).Return(app, nil)
	members.On("UpdateApplication", mock.Anything, app).Return(nil)
	members.On("Create", mock.Anything, mock.AnythingOfType("*model.Member")).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Member).ID = memberID
	}).Return(nil)

	payments.On("ListByUser", mock.Anything, uint(3)).Return([]model.Payment{paid}, nil)
	members.On("LoadSettings", mock.Anything).Return(&model.SubscriptionSettings{ID: 1, DefaultDurationYears: 2}, nil)
	payments.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.ID == paid.ID && p.MemberID != nil && *p.MemberID == memberID
	})).Return(nil)
	members.On("Update", mock.Anything, mock.MatchedBy(func(m *model.Member) bool {
		if m.Status != model.MembershipActive || m.MembershipExpiry == nil {
			return false
		}
		want := paidAt.AddDate(2, 0, 0)
		diff := m.MembershipExpiry.Sub(want)
		return diff > -time.Second && diff < time.Second
	})).Return(nil)

	users.On("FindByID", mock.Anything, uint(3)).Return(applicant, nil)
	mail.On("Send", mock.Anything).Return()

	members.On("FindByID", mock.Anything, memberID).Return(&model.Member{
		ID:       memberID,
		UserID:   3,
		Status:   model.MembershipActive,
		JoinedAt: time.Now(),
		Category: model.CategoryStudent,
	}, nil)
	members.On("FindBadgeLike", mock.Anything, model.BadgeMembership, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.ReviewApplication(context.Background(), app.ID, true, "", boardUser(9))
	assert.NoError(t, err)

	payments.AssertCalled(t, "Update", mock.Anything, mock.Anything)
	members.AssertCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMemberService_ReviewApplication_Reject(t *testing.T) {
	members := new(MockMemberRepository)
	users := new(MockUserRepository)
	payments := new(MockPaymentRepository)
	mail := new(MockMailer)
	svc := newTestMemberService(members, users, payments, mail)

	app := &model.MemberApplication{ID: uuid.New(), UserID: 3, Status: model.ApplicationPending}
	members.On("FindApplicationByID", mock.Anything, app.ID).Return(app, nil)
	members.On("UpdateApplication", mock.Anything, app).Return(nil)
	users.On("FindByID", mock.Anything, uint(3)).Return(memberUser(3), nil)
	mail.On("Send", mock.Anything).Return()

	reviewed, err := svc.ReviewApplication(context.Background(), app.ID, false, "incomplete", boardUser(9))
	assert.NoError(t, err)
	assert.Equal(t, model.ApplicationRejected, reviewed.Status)

	members.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
	mail.AssertCalled(t, "Send", mock.Anything)
}

func TestMemberService_ReviewApplication_AlreadyReviewed(t *testing.T) {
	members := new(MockMemberRepository)
	users := new(MockUserRepository)
	payments := new(MockPaymentRepository)
	mail := new(MockMailer)
	svc := newTestMemberService(members, users, payments, mail)

	app := &model.MemberApplication{ID: uuid.New(), UserID: 3, Status: model.ApplicationApproved}
	members.On("FindApplicationByID", mock.Anything, app.ID).Return(app, nil)

	_, err := svc.ReviewApplication(context.Background(), app.ID, true, "", boardUser(9))
	assert.ErrorIs(t, err, apperrors.ErrApplicationReviewed)
	members.AssertNotCalled(t, "UpdateApplication", mock.Anything, mock.Anything)
}

func TestMemberService_ReviewApplication_BoardOnly(t *testing.T) {
	members := new(MockMemberRepository)
	users := new(MockUserRepository)
	payments := new(MockPaymentRepository)
	mail := new(MockMailer)
	svc := newTestMemberService(members, users, payments, mail)

	_, err := svc.ReviewApplication(context.Background(), uuid.New(), true, "", memberUser(3))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = svc.ReviewApplication(context.Background(), uuid.New(), true, "", nil)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestMemberService_GetMember_PrivateProfile(t *testing.T) {
	member := &model.Member{ID: uuid.New(), UserID: 3, ProfilePublic: false}

	tests := []struct {
		name          string
		viewer        *model.User
		expectedError error
	}{
		{name: "owner sees own private profile", viewer: memberUser(3)},
		{name: "board sees private profile", viewer: boardUser(9)},
		{name: "other member gets not found", viewer: memberUser(4), expectedError: apperrors.ErrNotFound},
		{name: "anonymous gets not found", viewer: nil, expectedError: apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := new(MockMemberRepository)
			users := new(MockUserRepository)
			payments := new(MockPaymentRepository)
			mail := new(MockMailer)
			svc := newTestMemberService(members, users, payments, mail)

			members.On("FindByID", mock.Anything, member.ID).Return(member, nil)

			got, err := svc.GetMember(context.Background(), member.ID, tt.viewer)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, member.ID, got.ID)
		})
	}
}

func TestMemberService_ListMembers_FiltersInQuery(t *testing.T) {
	tests := []struct {
		name       string
		viewer     *model.User
		wantFilter func(f repository.MemberFilter) bool
	}{
		{
			name:   "anonymous viewers get public profiles only",
			viewer: nil,
			wantFilter: func(f repository.MemberFilter) bool {
				return f.PublicOnly && f.ViewerUserID == 0
			},
		},
		{
			name:   "members see public profiles plus their own row",
			viewer: memberUser(5),
			wantFilter: func(f repository.MemberFilter) bool {
				return f.PublicOnly && f.ViewerUserID == 5
			},
		},
		{
			name:   "board sees everything",
			viewer: boardUser(9),
			wantFilter: func(f repository.MemberFilter) bool {
				return !f.PublicOnly && f.ViewerUserID == 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := new(MockMemberRepository)
			users := new(MockUserRepository)
			payments := new(MockPaymentRepository)
			mail := new(MockMailer)
			svc := newTestMemberService(members, users, payments, mail)

			rows := []model.Member{{ID: uuid.New(), UserID: 1, ProfilePublic: true}}
			members.On("List", mock.Anything, mock.MatchedBy(tt.wantFilter)).Return(rows, int64(1), nil)

			listed, total, err := svc.ListMembers(context.Background(), repository.MemberFilter{}, tt.viewer)
			assert.NoError(t, err)
			assert.Equal(t, int64(1), total)
			assert.Len(t, listed, 1)
		})
	}
}

func TestMemberService_UpdateMemberProfile_PartialUpdate(t *testing.T) {
	members := new(MockMemberRepository)
	users := new(MockUserRepository)
	payments := new(MockPaymentRepository)
	mail := new(MockMailer)
	svc := newTestMemberService(members, users, payments, mail)

	member := &model.Member{
		ID:         uuid.New(),
		UserID:     3,
		University: "Sapienza",
		City:       "Rome",
	}
	members.On("FindByUserID", mock.Anything, uint(3)).Return(member, nil)
	members.On("Update", mock.Anything, member).Return(nil)

	city := "Milan"
	hidden := false
	updated, err := svc.UpdateMemberProfile(context.Background(), 3, MemberProfileUpdate{
		City:          &city,
		ProfilePublic: &hidden,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Milan", updated.City)
	assert.False(t, updated.ProfilePublic)
	assert.Equal(t, "Sapienza", updated.University)
}

func TestMemberService_AwardBadge(t *testing.T) {
	t.Run("awards once", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		memberID, badgeID := uuid.New(), uuid.New()
		members.On("FindBadgeByID", mock.Anything, badgeID).Return(&model.MemberBadge{ID: badgeID}, nil)
		members.On("HasAchievement", mock.Anything, memberID, badgeID).Return(false, nil)
		members.On("CreateAchievement", mock.Anything, mock.AnythingOfType("*model.MemberAchievement")).Return(nil)

		err := svc.AwardBadge(context.Background(), memberID, badgeID, "well earned", boardUser(9))
		assert.NoError(t, err)
	})

	t.Run("duplicate award is a no-op", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		memberID, badgeID := uuid.New(), uuid.New()
		members.On("FindBadgeByID", mock.Anything, badgeID).Return(&model.MemberBadge{ID: badgeID}, nil)
		members.On("HasAchievement", mock.Anything, memberID, badgeID).Return(true, nil)

		err := svc.AwardBadge(context.Background(), memberID, badgeID, "", boardUser(9))
		assert.NoError(t, err)
		members.AssertNotCalled(t, "CreateAchievement", mock.Anything, mock.Anything)
	})

	t.Run("unknown badge", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		badgeID := uuid.New()
		members.On("FindBadgeByID", mock.Anything, badgeID).Return(nil, gorm.ErrRecordNotFound)

		err := svc.AwardBadge(context.Background(), uuid.New(), badgeID, "", boardUser(9))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestMemberService_VerifyMember(t *testing.T) {
	members := new(MockMemberRepository)
	users := new(MockUserRepository)
	payments := new(MockPaymentRepository)
	mail := new(MockMailer)
	svc := newTestMemberService(members, users, payments, mail)

	member := &model.Member{ID: uuid.New(), UserID: 3, Status: model.MembershipActive, JoinedAt: time.Now()}
	reviewer := boardUser(9)

	members.On("FindByID", mock.Anything, member.ID).Return(member, nil)
	members.On("Update", mock.Anything, member).Return(nil)
	members.On("FindBadgeLike", mock.Anything, model.BadgeMembership, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	verified, err := svc.VerifyMember(context.Background(), member.ID, reviewer)
	assert.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.NotNil(t, verified.VerifiedAt)
	if assert.NotNil(t, verified.VerifiedByID) {
		assert.Equal(t, reviewer.ID, *verified.VerifiedByID)
	}
}

func TestMemberService_UpdateSettings(t *testing.T) {
	t.Run("admin changes duration", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		settings := &model.SubscriptionSettings{ID: 1, DefaultDurationYears: 2}
		members.On("LoadSettings", mock.Anything).Return(settings, nil)
		members.On("SaveSettings", mock.Anything, settings).Return(nil)

		updated, err := svc.UpdateSettings(context.Background(), 3, adminUser(1))
		assert.NoError(t, err)
		assert.Equal(t, 3, updated.DefaultDurationYears)
	})

	t.Run("board member denied", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		_, err := svc.UpdateSettings(context.Background(), 3, boardUser(9))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})

	t.Run("duration below one year rejected", func(t *testing.T) {
		members := new(MockMemberRepository)
		users := new(MockUserRepository)
		payments := new(MockPaymentRepository)
		mail := new(MockMailer)
		svc := newTestMemberService(members, users, payments, mail)

		_, err := svc.UpdateSettings(context.Background(), 0, adminUser(1))
		assert.Error(t, err)
		members.AssertNotCalled(t, "SaveSettings", mock.Anything, mock.Anything)
	})
}
