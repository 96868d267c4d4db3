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

// 公開 cobalt instance 的預設清單與畫質階梯
var (
	defaultCobaltInstances = []string{
		"https://cobalt.api.timelessnesses.me",
		"https://api.cobalt.tools",
		"https://cobalt-api.kwiatekmiki.com",
	}
	defaultQualityTiers = []string{"1080", "720", "360"}
)

// CobaltProvider 公開 cobalt instances（v8 API，兼容 v7 legacy 回應）
type CobaltProvider struct {
	instances           []string
	qualityTiers        []string
	client              *http.Client
	timeout             time.Duration
	restrictionKeywords []string
}

// NewCobaltProvider create the cobalt adapter
func NewCobaltProvider(cfg config.ProviderConfig) *CobaltProvider {
	instances := cfg.CobaltInstances
	if len(instances) == 0 {
		instances = defaultCobaltInstances
	}
	tiers := cfg.QualityTiers
	if len(tiers) == 0 {
		tiers = defaultQualityTiers
	}

	return &CobaltProvider{
		instances:           instances,
		qualityTiers:        tiers,
		client:              &http.Client{},
		timeout:             timeoutOrDefault(cfg.TimeoutSeconds),
		restrictionKeywords: restrictionKeywordsOrDefault(cfg.RestrictionKeywords),
	}
}

// Name provider name
func (p *CobaltProvider) Name() string { return "cobalt" }

type cobaltReq struct {
	URL           string `json:"url"`
	VideoQuality  string `json:"videoQuality"`
	FilenameStyle string `json:"filenameStyle"`
	DownloadMode  string `json:"downloadMode"`
}

type cobaltRes struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Text   string `json:"text"`
	Error  *struct {
		Code string `json:"code"`
	} `json:"error"`
	Picker []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"picker"`
}

// Resolve 依序嘗試每個 instance 與畫質階梯，首個成功即回傳
// instance/畫質的內部重試對 cascade 透明
func (p *CobaltProvider) Resolve(ctx context.Context, videoID string) Outcome {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	last := Failure(domain.FailureTransient, "no cobalt instance configured")
	sawRestricted := false

	for _, instance := range p.instances {
		for _, tier := range p.qualityTiers {
			if ctx.Err() != nil {
				return Failure(domain.FailureTransient, "cancelled")
			}

			outcome := p.tryInstance(ctx, instance, watchURL, tier)
			if outcome.OK {
				return outcome
			}
			if outcome.Kind == domain.FailureRestricted {
				sawRestricted = true
			}
			last = outcome
		}
	}

	// 任一 instance 回報 restricted 時以它為最終分類，避免被後續雜訊蓋掉
	if sawRestricted && last.Kind != domain.FailureRestricted {
		last = Failure(domain.FailureRestricted, last.Message)
	}
	return last
}

func (p *CobaltProvider) tryInstance(ctx context.Context, instance, watchURL, quality string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, _ := json.Marshal(cobaltReq{
		URL:           watchURL,
		VideoQuality:  quality,
		FilenameStyle: "basic",
		DownloadMode:  "auto",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instance, bytes.NewReader(body))
	if err != nil {
		return Failure(domain.FailureTransient, fmt.Sprintf("build request failed: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Failure(domain.FailureTransient, instance+" timed out")
		}
		return Failure(domain.FailureTransient, fmt.Sprintf("%s unreachable: %v", instance, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Failure(domain.FailureTransient, fmt.Sprintf("read response failed: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return Failure(domain.FailureTransient, fmt.Sprintf("%s returned %d", instance, resp.StatusCode))
	}

	var res cobaltRes
	if err := json.Unmarshal(raw, &res); err != nil {
		// HTTP 成功但 body 非預期，不能默默當成功
		return Failure(domain.FailureUnparseable, fmt.Sprintf("%s unexpected response shape: %.200s", instance, string(raw)))
	}

	if res.Status == "error" {
		msg := res.Text
		if res.Error != nil && res.Error.Code != "" {
			msg = res.Error.Code
		}
		if msg == "" {
			msg = "unknown cobalt error"
		}
		return Failure(classifyProviderError(p.Name(), msg, p.restrictionKeywords), msg)
	}

	// v8 直接給 url 或 picker
	if res.URL != "" {
		return Success(res.URL)
	}
	if len(res.Picker) > 0 {
		pick := res.Picker[0]
		for _, entry := range res.Picker {
			if entry.Type == "video" {
				pick = entry
				break
			}
		}
		if pick.URL != "" {
			return Success(pick.URL)
		}
		return Failure(domain.FailureUnparseable, instance+" picker entries missing url")
	}

	// legacy v7 格式
	if res.Status == "redirect" || res.Status == "stream" {
		return Failure(domain.FailureUnparseable, instance+" legacy response missing url")
	}

	return Failure(domain.FailureUnparseable, fmt.Sprintf("%s response had no url or picker: %.200s", instance, string(raw)))
}
