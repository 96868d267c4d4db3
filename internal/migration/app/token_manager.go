package app

import (
	"context"
	"fmt"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/internal/migration/repository"
	"video_migrate_service/pkg"
	"video_migrate_service/pkg/config"
	errprocess "video_migrate_service/pkg/err"
	"video_migrate_service/pkg/logger"

	"go.uber.org/zap"
)

// 到期前的提早刷新邊界
const defaultRefreshMargin = 60 * time.Second

// 對方服務拒絕授權時常見的訊息關鍵字
var defaultAuthKeywords = []string{"unauthorized", "auth", "credential", "token", "invalid"}

// TokenManager 維護 access/refresh token 生命週期
type TokenManager interface {
	EnsureValid(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error)
	RefreshAfterAuthFailure(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error)
	IsAuthError(message string) bool
}

type tokenManager struct {
	OAuthRepo repository.OAuthRepo

	margin       time.Duration
	authKeywords []string
}

// NewTokenManager create a new TokenManager
func NewTokenManager(oauthRepo repository.OAuthRepo, cfg config.ProviderConfig) TokenManager {
	keywords := cfg.AuthKeywords
	if len(keywords) == 0 {
		keywords = defaultAuthKeywords
	}

	return &tokenManager{
		OAuthRepo:    oauthRepo,
		margin:       defaultRefreshMargin,
		authKeywords: keywords,
	}
}

// EnsureValid 到期邊界內先行刷新，仍有效則原樣返回不動作
func (t *tokenManager) EnsureValid(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error) {
	if pair.State(t.margin) == domain.TokenValid {
		return pair, nil
	}

	logger.Log.Info("access token near expiry, refreshing proactively")
	return t.refresh(ctx, pair)
}

// RefreshAfterAuthFailure 上傳遭拒後的單次反應式刷新
// 至多一次的限制由呼叫端的重試策略維持
func (t *tokenManager) RefreshAfterAuthFailure(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error) {
	logger.Log.Warn("upload rejected as unauthorized, attempting reactive refresh")
	return t.refresh(ctx, pair)
}

// IsAuthError 以關鍵字啟發式判斷失敗訊息是否為授權問題
func (t *tokenManager) IsAuthError(message string) bool {
	return pkg.ContainsAnyKeyword(message, t.authKeywords)
}

func (t *tokenManager) refresh(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error) {
	if pair.RefreshToken == "" {
		errprocess.Set("refresh token missing, session can not be renewed")
		return pair, domain.ErrSessionExpired
	}

	accessToken, expiresIn, err := t.OAuthRepo.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		// refresh token 已撤銷或過期，會話終結
		errprocess.Set(fmt.Sprintf("refresh access token failed : %v", err))
		return pair, domain.ErrSessionExpired
	}

	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	renewed := domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    &expiresAt,
	}

	logger.Log.Info("access token refreshed", zap.Time("expires_at", expiresAt))
	return renewed, nil
}
