package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ascai/internal/model"
)

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateAccessToken(7, "user@example.com", model.RoleBoard)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, model.RoleBoard, claims.Role)
	assert.Empty(t, claims.ID)
}

func TestJWTService_WrongSecretRejected(t *testing.T) {
	svc := NewJWTService("test-secret")
	other := NewJWTService("different-secret")

	token, err := svc.GenerateAccessToken(7, "user@example.com", model.RoleMember)
	assert.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_GarbageTokenRejected(t *testing.T) {
	svc := NewJWTService("test-secret")

	for _, raw := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := svc.ValidateToken(raw)
		assert.Error(t, err)
	}
}

func TestJWTService_RefreshTokenCarriesID(t *testing.T) {
	svc := NewJWTService("test-secret")

	tokenID, token, err := svc.GenerateRefreshToken(7, "user@example.com", model.RoleMember)
	assert.NoError(t, err)
	assert.NotEmpty(t, tokenID)

	extracted, err := svc.ExtractTokenID(token)
	assert.NoError(t, err)
	assert.Equal(t, tokenID, extracted)
}

func TestJWTService_ExtractTokenID_AccessTokenHasNone(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateAccessToken(7, "user@example.com", model.RoleMember)
	assert.NoError(t, err)

	_, err = svc.ExtractTokenID(token)
	assert.Error(t, err)
}

func TestJWTService_RefreshTokenIDsAreUnique(t *testing.T) {
	svc := NewJWTService("test-secret")

	first, _, err := svc.GenerateRefreshToken(7, "user@example.com", model.RoleMember)
	assert.NoError(t, err)
	second, _, err := svc.GenerateRefreshToken(7, "user@example.com", model.RoleMember)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
}
