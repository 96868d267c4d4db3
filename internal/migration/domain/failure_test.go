package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregateFailure_Error(t *testing.T) {
	// **情境 1: primary 未配置時訊息指向配置**
	t.Run("primary未配置訊息", func(t *testing.T) {
		agg := &AggregateFailure{
			Attempts: []ProviderAttempt{
				{ProviderName: "ytdlp", Kind: FailureMisconfigured, Message: "base URL is not configured"},
				{ProviderName: "cobalt", Kind: FailureTransient, Message: "timed out"},
			},
			PrimaryMisconfigured: true,
		}

		assert.Contains(t, agg.Error(), "not configured")
		assert.Contains(t, agg.Error(), "ytdlp")
	})

	// **情境 2: 任一 provider 回報 restricted**
	t.Run("restricted訊息", func(t *testing.T) {
		agg := &AggregateFailure{
			Attempts: []ProviderAttempt{
				{ProviderName: "ytdlp", Kind: FailureTransient, Message: "timed out"},
				{ProviderName: "cobalt", Kind: FailureRestricted, Message: "video is private"},
			},
			AnyRestricted: true,
		}

		assert.Contains(t, agg.Error(), "restricted, private, or unavailable")
	})

	// **情境 3: 全部 transient 時的一般訊息與摘要上限**
	t.Run("一般訊息且摘要只留前五筆", func(t *testing.T) {
		attempts := make([]ProviderAttempt, 7)
		for i := range attempts {
			attempts[i] = ProviderAttempt{ProviderName: "p", Kind: FailureTransient, Message: "down"}
		}
		agg := &AggregateFailure{Attempts: attempts}

		msg := agg.Error()
		assert.Contains(t, msg, "all download providers failed")
		assert.Equal(t, maxAttemptSummaries, strings.Count(msg, " | "))
	})
}

func TestTokenPair_State(t *testing.T) {
	margin := 60 * time.Second

	// **情境 1: 距離過期還很遠**
	t.Run("有效", func(t *testing.T) {
		exp := time.Now().Add(time.Hour)
		pair := TokenPair{AccessToken: "a", ExpiresAt: &exp}
		assert.Equal(t, TokenValid, pair.State(margin))
	})

	// **情境 2: 進入安全邊界**
	t.Run("即將過期", func(t *testing.T) {
		exp := time.Now().Add(30 * time.Second)
		pair := TokenPair{AccessToken: "a", ExpiresAt: &exp}
		assert.Equal(t, TokenExpiringSoon, pair.State(margin))
	})

	// **情境 3: 已過期**
	t.Run("已過期", func(t *testing.T) {
		exp := time.Now().Add(-time.Minute)
		pair := TokenPair{AccessToken: "a", ExpiresAt: &exp}
		assert.Equal(t, TokenExpired, pair.State(margin))
	})

	// **情境 4: 沒有過期資訊時樂觀視為有效**
	t.Run("過期時間未知", func(t *testing.T) {
		pair := TokenPair{AccessToken: "a"}
		assert.Equal(t, TokenValid, pair.State(margin))
	})
}
