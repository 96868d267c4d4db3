package providers

import (
	"context"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg"
	"video_migrate_service/pkg/logger"
)

// Outcome 單次 resolve 的結果
type Outcome struct {
	OK        bool
	SourceURL string
	Kind      domain.FailureKind
	Message   string
}

// Success build a success outcome
func Success(sourceURL string) Outcome {
	return Outcome{OK: true, SourceURL: sourceURL}
}

// Failure build a failure outcome
func Failure(kind domain.FailureKind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}

// Resolver 統一的 provider adapter 介面，依優先順序註冊
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, videoID string) Outcome
}

// 預設逾時與關鍵字表，config 未給時使用
const defaultTimeout = 25 * time.Second

var defaultRestrictionKeywords = []string{"restricted", "private", "unavailable", "age"}

// classifyProviderError 依關鍵字把 provider 的自由文字錯誤分類
// 關鍵字比對本質脆弱，未命中的訊息記 warn 供定期檢視
func classifyProviderError(providerName, message string, restrictionKeywords []string) domain.FailureKind {
	if pkg.ContainsAnyKeyword(message, restrictionKeywords) {
		return domain.FailureRestricted
	}

	logger.Log.Warn("unclassified provider error, treating as transient: " + providerName + " - " + message)
	return domain.FailureTransient
}

func restrictionKeywordsOrDefault(keywords []string) []string {
	if len(keywords) == 0 {
		return defaultRestrictionKeywords
	}
	return keywords
}

func timeoutOrDefault(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultTimeout
	}
	return time.Duration(seconds) * time.Second
}
