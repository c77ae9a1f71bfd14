package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ascai/internal/audit"
	"ascai/internal/auth"
	apperrors "ascai/internal/errors"
	"ascai/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, attempt *model.FailedLoginAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockUserRepository) CountFailedLoginsByEmail(ctx context.Context, email string, since time.Time) (int64, error) {
	args := m.Called(ctx, email, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) CountFailedLoginsByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	args := m.Called(ctx, ip, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ClearFailedLogins(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, email, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uint), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func newTestAuthService(users *MockUserRepository, store *MockTokenStore) AuthService {
	return NewAuthService(users, auth.NewJWTService("test-secret"), store, audit.Nop{})
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		setupMock   func(*MockUserRepository)
		expectError bool
	}{
		{
			name:  "successful registration",
			email: "new@example.com",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:  "email already taken",
			email: "taken@example.com",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{Email: "taken@example.com"}, nil)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			tt.setupMock(users)

			svc := newTestAuthService(users, new(MockTokenStore))
			user, err := svc.Register(context.Background(), tt.email, "password123", "Ada", "Lovelace")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.email, user.Email)
				assert.Equal(t, model.RolePublic, user.Role)
				assert.NotEqual(t, "password123", user.PasswordHash)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	activeUser := func() *model.User {
		return &model.User{
			ID:           1,
			Email:        "user@example.com",
			PasswordHash: string(hash),
			Role:         model.RoleMember,
			IsActive:     true,
		}
	}

	t.Run("successful login", func(t *testing.T) {
		users := new(MockUserRepository)
		store := new(MockTokenStore)
		users.On("CountFailedLoginsByEmail", mock.Anything, "user@example.com", mock.Anything).Return(int64(0), nil)
		users.On("CountFailedLoginsByIP", mock.Anything, "10.0.0.1", mock.Anything).Return(int64(0), nil)
		users.On("FindByEmail", mock.Anything, "user@example.com").Return(activeUser(), nil)
		users.On("ClearFailedLogins", mock.Anything, "user@example.com").Return(nil)
		users.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
		store.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(1), "user@example.com", mock.Anything).Return(nil)

		svc := newTestAuthService(users, store)
		user, pair, err := svc.Login(context.Background(), "user@example.com", "password123", "10.0.0.1", "test-agent")

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotNil(t, user.LastLoginAt)
		users.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("wrong password records failure", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("CountFailedLoginsByEmail", mock.Anything, "user@example.com", mock.Anything).Return(int64(0), nil)
		users.On("CountFailedLoginsByIP", mock.Anything, "10.0.0.1", mock.Anything).Return(int64(0), nil)
		users.On("FindByEmail", mock.Anything, "user@example.com").Return(activeUser(), nil)
		users.On("RecordFailedLogin", mock.Anything, mock.AnythingOfType("*model.FailedLoginAttempt")).Return(nil)

		svc := newTestAuthService(users, new(MockTokenStore))
		_, _, err := svc.Login(context.Background(), "user@example.com", "wrong", "10.0.0.1", "test-agent")

		assert.Error(t, err)
		users.AssertExpectations(t)
	})

	t.Run("unknown email records failure", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("CountFailedLoginsByEmail", mock.Anything, "ghost@example.com", mock.Anything).Return(int64(0), nil)
		users.On("CountFailedLoginsByIP", mock.Anything, "10.0.0.1", mock.Anything).Return(int64(0), nil)
		users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)
		users.On("RecordFailedLogin", mock.Anything, mock.AnythingOfType("*model.FailedLoginAttempt")).Return(nil)

		svc := newTestAuthService(users, new(MockTokenStore))
		_, _, err := svc.Login(context.Background(), "ghost@example.com", "password123", "10.0.0.1", "test-agent")

		assert.Error(t, err)
		users.AssertExpectations(t)
	})

	t.Run("inactive account rejected", func(t *testing.T) {
		inactive := activeUser()
		inactive.IsActive = false

		users := new(MockUserRepository)
		users.On("CountFailedLoginsByEmail", mock.Anything, "user@example.com", mock.Anything).Return(int64(0), nil)
		users.On("CountFailedLoginsByIP", mock.Anything, "10.0.0.1", mock.Anything).Return(int64(0), nil)
		users.On("FindByEmail", mock.Anything, "user@example.com").Return(inactive, nil)

		svc := newTestAuthService(users, new(MockTokenStore))
		_, _, err := svc.Login(context.Background(), "user@example.com", "password123", "10.0.0.1", "test-agent")

		assert.ErrorIs(t, err, apperrors.ErrAccountInactive)
	})
}

func TestAuthService_Lockout(t *testing.T) {
	tests := []struct {
		name       string
		emailFails int64
		ipFails    int64
		locked     bool
	}{
		{name: "under both thresholds", emailFails: 4, ipFails: 9, locked: false},
		{name: "email threshold reached", emailFails: 5, ipFails: 0, locked: true},
		{name: "ip threshold reached", emailFails: 0, ipFails: 10, locked: true},
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			store := new(MockTokenStore)
			users.On("CountFailedLoginsByEmail", mock.Anything, "user@example.com", mock.Anything).Return(tt.emailFails, nil)
			users.On("CountFailedLoginsByIP", mock.Anything, "10.0.0.1", mock.Anything).Return(tt.ipFails, nil).Maybe()

			if !tt.locked {
				users.On("FindByEmail", mock.Anything, "user@example.com").Return(&model.User{
					ID:           1,
					Email:        "user@example.com",
					PasswordHash: string(hash),
					IsActive:     true,
				}, nil)
				users.On("ClearFailedLogins", mock.Anything, "user@example.com").Return(nil)
				users.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
				store.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(1), "user@example.com", mock.Anything).Return(nil)
			}

			svc := newTestAuthService(users, store)
			_, _, err := svc.Login(context.Background(), "user@example.com", "password123", "10.0.0.1", "test-agent")

			if tt.locked {
				assert.ErrorIs(t, err, apperrors.ErrAccountLocked)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthService_Refresh_Rotation(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	tokenID, refreshToken, err := jwtService.GenerateRefreshToken(1, "user@example.com", model.RoleMember)
	assert.NoError(t, err)

	users := new(MockUserRepository)
	store := new(MockTokenStore)
	store.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(1), "user@example.com", nil)
	users.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, Email: "user@example.com", IsActive: true}, nil)
	store.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
	store.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(1), "user@example.com", mock.Anything).Return(nil)

	svc := NewAuthService(users, jwtService, store, audit.Nop{})
	pair, err := svc.Refresh(context.Background(), refreshToken)

	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	// The presented token is deleted, so each refresh token is single-use.
	store.AssertCalled(t, "DeleteRefreshToken", mock.Anything, tokenID)
}

func TestAuthService_ChangePassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.DefaultCost)
	user := &model.User{ID: 1, Email: "user@example.com", PasswordHash: string(hash), IsActive: true}

	t.Run("wrong current password", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)

		svc := newTestAuthService(users, new(MockTokenStore))
		err := svc.ChangePassword(context.Background(), 1, "not-it", "new-password")

		assert.Error(t, err)
	})

	t.Run("successful change", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
		users.On("Update", mock.Anything, user).Return(nil)

		svc := newTestAuthService(users, new(MockTokenStore))
		err := svc.ChangePassword(context.Background(), 1, "old-password", "new-password")

		assert.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")))
	})
}
