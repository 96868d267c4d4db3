package providers

import (
	"context"
	"testing"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

// fakeAdapter 記錄自己是否被呼叫
type fakeAdapter struct {
	name    string
	outcome Outcome
	called  bool
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Resolve(ctx context.Context, videoID string) Outcome {
	f.called = true
	return f.outcome
}

func TestCascadeResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	// **情境 1: 首個成功即停，後面的 adapter 不會被呼叫**
	t.Run("首個成功即停", func(t *testing.T) {
		first := &fakeAdapter{name: "a", outcome: Success("https://cdn.example.com/v.mp4")}
		second := &fakeAdapter{name: "b", outcome: Success("https://other.example.com/v.mp4")}

		c := NewCascadeResolverWith(first, second)
		sourceURL, providerName, attempts, err := c.Resolve(ctx, "vid123")

		assert.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/v.mp4", sourceURL)
		assert.Equal(t, "a", providerName)
		assert.Len(t, attempts, 1)
		assert.False(t, second.called)
	})

	// **情境 2: primary 失敗後下一個成功**
	t.Run("失敗後換下一個", func(t *testing.T) {
		first := &fakeAdapter{name: "a", outcome: Failure(domain.FailureTransient, "down")}
		second := &fakeAdapter{name: "b", outcome: Success("https://other.example.com/v.mp4")}

		c := NewCascadeResolverWith(first, second)
		sourceURL, providerName, attempts, err := c.Resolve(ctx, "vid123")

		assert.NoError(t, err)
		assert.Equal(t, "https://other.example.com/v.mp4", sourceURL)
		assert.Equal(t, "b", providerName)
		assert.Len(t, attempts, 2)
	})

	// **情境 3: 全滅時彙整所有嘗試**
	t.Run("全部失敗彙整錯誤", func(t *testing.T) {
		first := &fakeAdapter{name: "a", outcome: Failure(domain.FailureTransient, "down")}
		second := &fakeAdapter{name: "b", outcome: Failure(domain.FailureRestricted, "video is private")}

		c := NewCascadeResolverWith(first, second)
		_, _, attempts, err := c.Resolve(ctx, "vid123")

		assert.Error(t, err)
		assert.Len(t, attempts, 2)

		var agg *domain.AggregateFailure
		assert.ErrorAs(t, err, &agg)
		assert.True(t, agg.AnyRestricted)
		assert.Contains(t, err.Error(), "restricted, private, or unavailable")
	})

	// **情境 4: primary 未配置時訊息指向配置而非影片**
	t.Run("primary未配置", func(t *testing.T) {
		first := &fakeAdapter{name: "ytdlp", outcome: Failure(domain.FailureMisconfigured, "yt-dlp service base URL is not configured")}
		second := &fakeAdapter{name: "b", outcome: Failure(domain.FailureTransient, "down")}

		c := NewCascadeResolverWith(first, second)
		_, _, _, err := c.Resolve(ctx, "vid123")

		var agg *domain.AggregateFailure
		assert.ErrorAs(t, err, &agg)
		assert.True(t, agg.PrimaryMisconfigured)
		assert.Contains(t, err.Error(), "not configured")
	})

	// **情境 5: context 取消後不再嘗試後續 adapter**
	t.Run("取消後停止", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		first := &fakeAdapter{name: "a", outcome: Success("https://cdn.example.com/v.mp4")}
		c := NewCascadeResolverWith(first)
		_, _, attempts, err := c.Resolve(cancelled, "vid123")

		assert.Error(t, err)
		assert.Empty(t, attempts)
		assert.False(t, first.called)
	})
}
