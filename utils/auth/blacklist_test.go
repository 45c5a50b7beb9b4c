package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklist(t *testing.T) {
	db := dbtest.New(t)
	svc := auth.NewBlacklistService(db)
	ctx := context.Background()

	user := model.User{Email: "bl@example.com", Name: "BL", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, svc.RevokeToken(ctx, "live-jti", user.ID, time.Now().Add(time.Hour), "logout"))
	require.NoError(t, svc.RevokeToken(ctx, "old-jti", user.ID, time.Now().Add(-time.Hour), "logout"))

	revoked, err := svc.IsTokenRevoked(ctx, "live-jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = svc.IsTokenRevoked(ctx, "old-jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	removed, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, svc.RevokeAllUserTokens(ctx, user.ID))
	version, err := svc.GetUserTokenVersion(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}
