package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
	errprocess "video_migrate_service/pkg/err"
)

// YouTube Data API base url，測試時可替換
var metadataAPIBase = "https://www.googleapis.com/youtube/v3"

// MetadataRepo definition video metadata lookup
type MetadataRepo interface {
	GetVideoInfo(ctx context.Context, videoID string) (*domain.VideoInfo, error)
}

type metadataRepo struct {
	apiKey string
	client *http.Client
}

// NewMetadataRepo create a MetadataRepo
func NewMetadataRepo(cfg config.YouTubeConfig) MetadataRepo {
	return &metadataRepo{
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetVideoInfo 查詢影片 metadata，供表單預填與顯示
func (r *metadataRepo) GetVideoInfo(ctx context.Context, videoID string) (*domain.VideoInfo, error) {
	if r.apiKey == "" {
		return nil, errprocess.Set("YouTube Data API key is not configured")
	}

	q := url.Values{}
	q.Set("id", videoID)
	q.Set("key", r.apiKey)
	q.Set("part", "snippet,contentDetails,statistics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataAPIBase+"/videos?"+q.Encode(), nil)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%s] build metadata request failed : %v", videoID, err))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%s] metadata endpoint unreachable : %v", videoID, err))
	}
	defer resp.Body.Close()

	var res struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Items []struct {
			Snippet struct {
				Title        string `json:"title"`
				Description  string `json:"description"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
				Thumbnails   map[string]struct {
					URL string `json:"url"`
				} `json:"thumbnails"`
			} `json:"snippet"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
			Statistics struct {
				ViewCount string `json:"viewCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%s] decode metadata response failed : %v", videoID, err))
	}
	if res.Error != nil {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%s] metadata endpoint error : %s", videoID, res.Error.Message))
	}
	if len(res.Items) == 0 {
		return nil, errprocess.Set(fmt.Sprintf("videoID[%s] video not found or is private", videoID))
	}

	item := res.Items[0]

	// 縮圖取最高可用畫質
	thumbnail := ""
	for _, key := range []string{"maxres", "high", "medium", "default"} {
		if t, ok := item.Snippet.Thumbnails[key]; ok && t.URL != "" {
			thumbnail = t.URL
			break
		}
	}

	return &domain.VideoInfo{
		VideoID:      videoID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		Thumbnail:    thumbnail,
		ChannelTitle: item.Snippet.ChannelTitle,
		PublishedAt:  item.Snippet.PublishedAt,
		ViewCount:    item.Statistics.ViewCount,
		Duration:     domain.FormatISODuration(item.ContentDetails.Duration),
	}, nil
}
