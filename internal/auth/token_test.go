package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := newTestTokenManager()

	pair, err := tm.IssuePair(42)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.Type)

	claims, err = tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RejectsCrossUse(t *testing.T) {
	tm := newTestTokenManager()
	pair, err := tm.IssuePair(1)
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := newTestTokenManager()
	issuedAt := time.Now().Add(-time.Hour)
	tm.now = func() time.Time { return issuedAt }

	pair, err := tm.IssuePair(1)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// refresh TTL is a day, so the refresh token is still good
	_, err = tm.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenManager_RotationProducesFreshRefreshToken(t *testing.T) {
	tm := newTestTokenManager()
	first, err := tm.IssuePair(7)
	require.NoError(t, err)
	second, err := tm.IssuePair(7)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	_, err := newTestTokenManager().ParseAccess("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
