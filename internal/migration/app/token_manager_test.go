package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
	"video_migrate_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOAuthRepo Mock OAuthRepo
type MockOAuthRepo struct {
	mock.Mock
}

func (m *MockOAuthRepo) GetAuthorizationURL(redirectURI, state string) string {
	args := m.Called(redirectURI, state)
	return args.String(0)
}

func (m *MockOAuthRepo) ExchangeCode(ctx context.Context, code, redirectURI string) (domain.TokenPair, domain.ChannelInfo, error) {
	args := m.Called(ctx, code, redirectURI)
	return args.Get(0).(domain.TokenPair), args.Get(1).(domain.ChannelInfo), args.Error(2)
}

func (m *MockOAuthRepo) Refresh(ctx context.Context, refreshToken string) (string, int, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Int(1), args.Error(2)
}

func TestTokenManager_EnsureValid(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	// **情境 1: 距離過期還遠，不動作且不打 refresh**
	t.Run("有效期內不動作", func(t *testing.T) {
		mockOAuth := new(MockOAuthRepo)
		tm := NewTokenManager(mockOAuth, config.ProviderConfig{})

		exp := time.Now().Add(time.Hour)
		pair := domain.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}

		got, err := tm.EnsureValid(ctx, pair)

		assert.NoError(t, err)
		assert.Equal(t, pair, got)
		mockOAuth.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	// **情境 2: 進入安全邊界，先行刷新**
	t.Run("邊界內先行刷新", func(t *testing.T) {
		mockOAuth := new(MockOAuthRepo)
		mockOAuth.On("Refresh", ctx, "r").Return("new-access", 3600, nil).Once()
		tm := NewTokenManager(mockOAuth, config.ProviderConfig{})

		exp := time.Now().Add(30 * time.Second)
		pair := domain.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}

		got, err := tm.EnsureValid(ctx, pair)

		assert.NoError(t, err)
		assert.Equal(t, "new-access", got.AccessToken)
		assert.Equal(t, "r", got.RefreshToken)
		assert.NotNil(t, got.ExpiresAt)
		mockOAuth.AssertExpectations(t)
	})

	// **情境 3: 刷新失敗，會話終結**
	t.Run("刷新失敗會話終結", func(t *testing.T) {
		mockOAuth := new(MockOAuthRepo)
		mockOAuth.On("Refresh", ctx, "r").Return("", 0, errors.New("invalid_grant")).Once()
		tm := NewTokenManager(mockOAuth, config.ProviderConfig{})

		exp := time.Now().Add(-time.Minute)
		pair := domain.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}

		_, err := tm.EnsureValid(ctx, pair)
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
	})

	// **情境 4: 沒有 refresh token 無從刷新**
	t.Run("缺refresh token", func(t *testing.T) {
		mockOAuth := new(MockOAuthRepo)
		tm := NewTokenManager(mockOAuth, config.ProviderConfig{})

		exp := time.Now().Add(-time.Minute)
		pair := domain.TokenPair{AccessToken: "a", ExpiresAt: &exp}

		_, err := tm.EnsureValid(ctx, pair)

		assert.ErrorIs(t, err, domain.ErrSessionExpired)
		mockOAuth.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})
}

func TestTokenManager_IsAuthError(t *testing.T) {
	logger.SetNewNop()
	tm := NewTokenManager(new(MockOAuthRepo), config.ProviderConfig{})

	assert.True(t, tm.IsAuthError("upload initiation failed: Invalid Credentials"))
	assert.True(t, tm.IsAuthError("401 Unauthorized"))
	assert.True(t, tm.IsAuthError("the access token has expired"))
	assert.False(t, tm.IsAuthError("connection reset by peer"))
}
