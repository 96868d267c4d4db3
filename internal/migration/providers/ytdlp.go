package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
)

// YtdlpProvider 自建 yt-dlp HTTP 服務，為 cascade 的 primary
type YtdlpProvider struct {
	baseURL             string
	client              *http.Client
	timeout             time.Duration
	restrictionKeywords []string
}

// NewYtdlpProvider create the primary yt-dlp service adapter
func NewYtdlpProvider(cfg config.ProviderConfig) *YtdlpProvider {
	return &YtdlpProvider{
		baseURL:             cfg.YtdlpBaseURL,
		client:              &http.Client{},
		timeout:             timeoutOrDefault(cfg.TimeoutSeconds),
		restrictionKeywords: restrictionKeywordsOrDefault(cfg.RestrictionKeywords),
	}
}

// Name provider name
func (p *YtdlpProvider) Name() string { return "ytdlp" }

type ytdlpReq struct {
	VideoID string `json:"videoId"`
}

type ytdlpRes struct {
	DownloadURL string `json:"downloadUrl"`
	Status      string `json:"status"`
	Error       string `json:"error"`
}

// Resolve 向 yt-dlp 服務要求 direct download url
func (p *YtdlpProvider) Resolve(ctx context.Context, videoID string) Outcome {
	// 未配置 base url 時直接回報，不發出任何網路請求
	if p.baseURL == "" {
		return Failure(domain.FailureMisconfigured, "yt-dlp service base URL is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(ytdlpReq{VideoID: videoID})
	if err != nil {
		return Failure(domain.FailureTransient, fmt.Sprintf("encode request failed: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/download", bytes.NewReader(body))
	if err != nil {
		return Failure(domain.FailureTransient, fmt.Sprintf("build request failed: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Failure(domain.FailureTransient, "yt-dlp service timed out")
		}
		return Failure(domain.FailureTransient, fmt.Sprintf("yt-dlp service unreachable: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Failure(domain.FailureTransient, fmt.Sprintf("read response failed: %v", err))
	}

	var res ytdlpRes
	if err := json.Unmarshal(raw, &res); err != nil {
		return Failure(domain.FailureUnparseable, fmt.Sprintf("unexpected response shape: %.200s", string(raw)))
	}

	// 應用層錯誤需要檢查訊息分類
	if res.Error != "" {
		return Failure(classifyProviderError(p.Name(), res.Error, p.restrictionKeywords), res.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return Failure(domain.FailureTransient, fmt.Sprintf("yt-dlp service returned %d", resp.StatusCode))
	}
	if res.DownloadURL == "" {
		return Failure(domain.FailureUnparseable, "response missing downloadUrl")
	}

	return Success(res.DownloadURL)
}
