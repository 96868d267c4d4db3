package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind definition provider failure classification
type FailureKind string

const (
	// FailureTransient network error, timeout, 5xx
	FailureTransient FailureKind = "transient"
	// FailureRestricted video private, age-gated or unavailable
	FailureRestricted FailureKind = "restricted"
	// FailureMisconfigured required credential or endpoint absent
	FailureMisconfigured FailureKind = "misconfigured"
	// FailureUnparseable response shape unexpected
	FailureUnparseable FailureKind = "unparseable"
)

// ProviderAttempt 單一 adapter 的嘗試結果，只留作診斷彙整
type ProviderAttempt struct {
	ProviderName string
	OK           bool
	SourceURL    string
	Kind         FailureKind
	Message      string
	ElapsedMs    int64
}

// Summary 回傳單行診斷摘要
func (a ProviderAttempt) Summary() string {
	if a.OK {
		return fmt.Sprintf("%s: ok (%dms)", a.ProviderName, a.ElapsedMs)
	}
	return fmt.Sprintf("%s: %s - %s (%dms)", a.ProviderName, a.Kind, a.Message, a.ElapsedMs)
}

// maxAttemptSummaries 彙整錯誤時只保留前幾筆摘要
const maxAttemptSummaries = 5

// AggregateFailure 所有 provider 都失敗時的彙整結果
type AggregateFailure struct {
	Attempts             []ProviderAttempt
	AnyRestricted        bool
	PrimaryMisconfigured bool
}

// Error 組合使用者可讀訊息，優先順序 Misconfigured > Restricted > generic
func (f *AggregateFailure) Error() string {
	var b strings.Builder

	switch {
	case f.PrimaryMisconfigured:
		b.WriteString("Primary download provider is not configured. Set the yt-dlp service base URL to enable reliable downloads.")
	case f.AnyRestricted:
		b.WriteString("The video may be restricted, private, or unavailable for download.")
	default:
		b.WriteString("Unable to process this video: all download providers failed.")
	}

	n := len(f.Attempts)
	if n > maxAttemptSummaries {
		n = maxAttemptSummaries
	}
	for i := 0; i < n; i++ {
		b.WriteString(" | ")
		b.WriteString(f.Attempts[i].Summary())
	}

	return b.String()
}

// ErrSessionExpired 必須重新授權，呼叫端負責清除已保存的 token
var ErrSessionExpired = errors.New("YouTube session expired, please reconnect your account")

// SizeExceededError staging buffer 超過上限
type SizeExceededError struct {
	LimitBytes int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("media exceeds the %d MB buffering limit; use a source that declares its content length or a pre-sized file", e.LimitBytes/(1024*1024))
}

// InitiationError resumable upload 第一階段失敗
type InitiationError struct {
	Message string
}

func (e *InitiationError) Error() string {
	return "upload initiation failed: " + e.Message
}

// TransferError resumable upload 第二階段失敗
type TransferError struct {
	Message string
}

func (e *TransferError) Error() string {
	return "upload transfer failed: " + e.Message
}
