package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	HashCost = 4
}

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret", "course-market"))
	sub := TokenSubject{UserID: uuid.New(), Email: "ana@example.com", Role: model.RoleStudent, TokenVersion: 3}

	token, jti, err := manager.GenerateAccessToken(sub)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, sub.UserID, claims.UserID)
	assert.Equal(t, sub.Email, claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, jti, claims.ID)

	expiry, err := manager.GetTokenExpiry(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiry, time.Minute)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager(DefaultJWTConfig("secret-a", "x"))
	verifier := NewJWTManager(DefaultJWTConfig("secret-b", "x"))

	token, _, err := issuer.GenerateAccessToken(TokenSubject{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := DefaultJWTConfig("secret", "x")
	cfg.Expiry = -time.Minute
	manager := NewJWTManager(cfg)

	token, _, err := manager.GenerateAccessToken(TokenSubject{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRefreshTokenRequiresRefreshType(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("secret", "x"))
	sub := TokenSubject{UserID: uuid.New()}

	access, _, err := manager.GenerateAccessToken(sub)
	require.NoError(t, err)
	_, err = manager.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh, _, err := manager.GenerateRefreshToken(sub)
	require.NoError(t, err)
	claims, err := manager.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestHashAndVerifyPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong horse"), ErrPasswordMismatch)
}

func TestGenerateResetToken(t *testing.T) {
	a, err := GenerateResetToken()
	require.NoError(t, err)
	b, err := GenerateResetToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
