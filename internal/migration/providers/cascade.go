package providers

import (
	"context"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
	"video_migrate_service/pkg/logger"

	"go.uber.org/zap"
)

// CascadeResolver 依固定優先順序逐一嘗試 adapter，首個成功即停
type CascadeResolver struct {
	adapters []Resolver
}

// NewCascadeResolver 組裝預設順序：primary(ytdlp) → cobalt → vidssave
func NewCascadeResolver(cfg config.ProviderConfig) *CascadeResolver {
	return &CascadeResolver{
		adapters: []Resolver{
			NewYtdlpProvider(cfg),
			NewCobaltProvider(cfg),
			NewVidsSaveProvider(cfg),
		},
	}
}

// NewCascadeResolverWith 測試或自訂順序時使用
func NewCascadeResolverWith(adapters ...Resolver) *CascadeResolver {
	return &CascadeResolver{adapters: adapters}
}

// Resolve 回傳首個成功的 source url 與勝出 provider；全滅時彙整所有嘗試
func (c *CascadeResolver) Resolve(ctx context.Context, videoID string) (string, string, []domain.ProviderAttempt, error) {
	attempts := make([]domain.ProviderAttempt, 0, len(c.adapters))

	for _, adapter := range c.adapters {
		// 觀察到取消後不再進入下一個 adapter
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		outcome := adapter.Resolve(ctx, videoID)
		elapsed := time.Since(start).Milliseconds()

		attempt := domain.ProviderAttempt{
			ProviderName: adapter.Name(),
			OK:           outcome.OK,
			SourceURL:    outcome.SourceURL,
			Kind:         outcome.Kind,
			Message:      outcome.Message,
			ElapsedMs:    elapsed,
		}
		attempts = append(attempts, attempt)

		if outcome.OK {
			logger.Log.Info("source resolved",
				zap.String("video_id", videoID),
				zap.String("provider", adapter.Name()),
				zap.Int64("elapsed_ms", elapsed),
			)
			return outcome.SourceURL, adapter.Name(), attempts, nil
		}

		// 失敗不分類型都繼續，各鏡像的可及性不同
		logger.Log.Warn("provider attempt failed",
			zap.String("video_id", videoID),
			zap.String("provider", adapter.Name()),
			zap.String("kind", string(outcome.Kind)),
			zap.String("message", outcome.Message),
		)
	}

	agg := &domain.AggregateFailure{Attempts: attempts}
	for i, attempt := range attempts {
		if attempt.Kind == domain.FailureRestricted {
			agg.AnyRestricted = true
		}
		if i == 0 && attempt.Kind == domain.FailureMisconfigured {
			agg.PrimaryMisconfigured = true
		}
	}

	return "", "", attempts, agg
}
