package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ascai/internal/audit"
	"ascai/internal/auth"
	apperrors "ascai/internal/errors"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// Lockout thresholds. An email locks faster than an IP because a single
// account under attack should close before the whole address is cut off.
const (
	maxFailedPerEmail  = 5
	emailLockoutWindow = 15 * time.Minute
	maxFailedPerIP     = 10
	ipLockoutWindow    = 60 * time.Minute
)

// TokenPair carries a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService handles registration, login and token lifecycle.
type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*model.User, error)
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*model.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	GetProfile(ctx context.Context, userID uint) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, bio, phone, pictureURL *string) (*model.User, error)
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	recorder   audit.Recorder
}

// NewAuthService creates a new auth service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, recorder audit.Recorder) AuthService {
	return &authService{
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		recorder:   recorder,
	}
}

// Register creates a new user account. New accounts start with the public
// role; membership is granted through the application workflow.
func (s *authService) Register(ctx context.Context, email, password, firstName, lastName string) (*model.User, error) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.NewHTTPError(http.StatusConflict, "email already registered", "EMAIL_TAKEN")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		Role:         model.RolePublic,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "user",
		EntityID: fmt.Sprint(user.ID),
		ActorID:  &user.ID,
		Summary:  "user registered",
	})
	return user, nil
}

// Login verifies credentials and issues a token pair. Failed attempts are
// recorded per email and per IP; crossing either threshold locks further
// attempts until the window slides past.
func (s *authService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*model.User, *TokenPair, error) {
	if err := s.checkLockout(ctx, email, ipAddress); err != nil {
		return nil, nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(ctx, email, ipAddress, userAgent)
			return nil, nil, apperrors.NewHTTPError(http.StatusUnauthorized, "invalid credentials", "INVALID_CREDENTIALS")
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, email, ipAddress, userAgent)
		return nil, nil, apperrors.NewHTTPError(http.StatusUnauthorized, "invalid credentials", "INVALID_CREDENTIALS")
	}

	if !user.IsActive {
		return nil, nil, apperrors.ErrAccountInactive
	}

	if err := s.users.ClearFailedLogins(ctx, email); err != nil {
		return nil, nil, fmt.Errorf("clear failed logins: %w", err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("update last login: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *authService) checkLockout(ctx context.Context, email, ipAddress string) error {
	emailFails, err := s.users.CountFailedLoginsByEmail(ctx, email, time.Now().Add(-emailLockoutWindow))
	if err != nil {
		return fmt.Errorf("count failed logins: %w", err)
	}
	if emailFails >= maxFailedPerEmail {
		return apperrors.ErrAccountLocked
	}

	ipFails, err := s.users.CountFailedLoginsByIP(ctx, ipAddress, time.Now().Add(-ipLockoutWindow))
	if err != nil {
		return fmt.Errorf("count failed logins: %w", err)
	}
	if ipFails >= maxFailedPerIP {
		return apperrors.ErrAccountLocked
	}
	return nil
}

func (s *authService) recordFailure(ctx context.Context, email, ipAddress, userAgent string) {
	attempt := &model.FailedLoginAttempt{
		Email:     email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	// A failed write here must not mask the credential error.
	_ = s.users.RecordFailedLogin(ctx, attempt)
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Email, auth.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates the refresh token and issues a new pair. The presented
// token must still exist in the store; rotation deletes it so each refresh
// token is single-use.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return nil, apperrors.NewHTTPError(http.StatusUnauthorized, "invalid refresh token", "INVALID_TOKEN")
	}

	userID, _, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return nil, apperrors.NewHTTPError(http.StatusUnauthorized, "invalid refresh token", "INVALID_TOKEN")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewHTTPError(http.StatusUnauthorized, "invalid refresh token", "INVALID_TOKEN")
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}

	if err := s.tokenStore.DeleteRefreshToken(ctx, tokenID); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

// Logout invalidates the presented refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return apperrors.NewHTTPError(http.StatusUnauthorized, "invalid refresh token", "INVALID_TOKEN")
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

// ChangePassword verifies the current password before setting a new one.
func (s *authService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.NewHTTPError(http.StatusUnauthorized, "current password is incorrect", "INVALID_CREDENTIALS")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditUpdate,
		Entity:   "user",
		EntityID: fmt.Sprint(user.ID),
		ActorID:  &user.ID,
		Summary:  "password changed",
	})
	return nil
}

// GetProfile returns the user's own account.
func (s *authService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the provided fields; nil means keep the current value.
func (s *authService) UpdateProfile(ctx context.Context, userID uint, bio, phone, pictureURL *string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bio != nil {
		user.Bio = *bio
	}
	if phone != nil {
		user.Phone = *phone
	}
	if pictureURL != nil {
		user.PictureURL = *pictureURL
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
