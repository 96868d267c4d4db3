package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
)

const defaultVidsSaveBaseURL = "https://vidssave.com"

// 從半結構化 HTML 取出內嵌的 mp4 連結，接受絕對、protocol-relative 與 root-relative 形式
var mp4LinkRe = regexp.MustCompile(`(?:https?:)?//[^"'\s<>]+\.mp4[^"'\s<>]*|/[^"'\s<>/][^"'\s<>]*\.mp4[^"'\s<>]*`)

// VidsSaveProvider 網頁鏡像站 adapter，最後的 best-effort 退路
type VidsSaveProvider struct {
	baseURL             string
	client              *http.Client
	timeout             time.Duration
	restrictionKeywords []string
}

// NewVidsSaveProvider create the vidssave scraper adapter
func NewVidsSaveProvider(cfg config.ProviderConfig) *VidsSaveProvider {
	base := cfg.VidsSaveBaseURL
	if base == "" {
		base = defaultVidsSaveBaseURL
	}

	return &VidsSaveProvider{
		baseURL:             strings.TrimRight(base, "/"),
		client:              &http.Client{},
		timeout:             timeoutOrDefault(cfg.TimeoutSeconds),
		restrictionKeywords: restrictionKeywordsOrDefault(cfg.RestrictionKeywords),
	}
}

// Name provider name
func (p *VidsSaveProvider) Name() string { return "vidssave" }

// Resolve form-encoded POST 後從回應頁面抽出檔案連結
func (p *VidsSaveProvider) Resolve(ctx context.Context, videoID string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("url", "https://www.youtube.com/watch?v="+videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/yt", strings.NewReader(form.Encode()))
	if err != nil {
		return Failure(domain.FailureTransient, fmt.Sprintf("build request failed: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Failure(domain.FailureTransient, "vidssave timed out")
		}
		return Failure(domain.FailureTransient, fmt.Sprintf("vidssave unreachable: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return Failure(domain.FailureTransient, fmt.Sprintf("read response failed: %v", err))
	}
	page := string(raw)

	if resp.StatusCode != http.StatusOK {
		return Failure(classifyProviderError(p.Name(), fmt.Sprintf("vidssave returned %d: %.200s", resp.StatusCode, page), p.restrictionKeywords),
			fmt.Sprintf("vidssave returned %d", resp.StatusCode))
	}

	match := mp4LinkRe.FindString(page)
	if match == "" {
		return Failure(domain.FailureUnparseable, "no file URL found in vidssave response")
	}

	return Success(p.normalizeURL(match))
}

// normalizeURL 把 protocol-relative 與 root-relative 連結補上 provider origin
func (p *VidsSaveProvider) normalizeURL(raw string) string {
	if strings.HasPrefix(raw, "//") {
		scheme := "https:"
		if strings.HasPrefix(p.baseURL, "http://") {
			scheme = "http:"
		}
		return scheme + raw
	}
	if strings.HasPrefix(raw, "/") {
		return p.baseURL + raw
	}
	return raw
}
