package domain

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ReferenceKind definition video reference source kind
type ReferenceKind string

const (
	// ReferenceYouTube reference by youtube video id
	ReferenceYouTube ReferenceKind = "youtube"
	// ReferenceDirectURL reference by direct file url
	ReferenceDirectURL ReferenceKind = "direct_url"
	// ReferenceLocalObject reference by an already staged local object
	ReferenceLocalObject ReferenceKind = "local_object"
)

// VideoReference tagged union，由輸入層建立後不再變動
type VideoReference struct {
	Kind ReferenceKind `json:"kind"`

	YouTubeID   string `json:"youtube_id,omitempty"`
	DirectURL   string `json:"direct_url,omitempty"`
	LocalObject string `json:"local_object,omitempty"` // MinIO object key
}

// WatchURL 組回標準觀看連結
func (r VideoReference) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.YouTubeID
}

// ExtractYouTubeID 從各種 youtube 連結格式取出 video id
func ExtractYouTubeID(rawURL string) string {
	if strings.Contains(rawURL, "youtu.be") {
		part := rawURL[strings.LastIndex(rawURL, "/")+1:]
		if i := strings.Index(part, "?"); i >= 0 {
			part = part[:i]
		}
		return part
	}
	if strings.Contains(rawURL, "youtube.com/watch") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return ""
		}
		return u.Query().Get("v")
	}
	if strings.Contains(rawURL, "youtube.com/shorts") {
		part := rawURL[strings.Index(rawURL, "/shorts/")+len("/shorts/"):]
		if i := strings.Index(part, "?"); i >= 0 {
			part = part[:i]
		}
		return part
	}
	return ""
}

// SizeUnknown StagedMedia 長度未知時的標記值
const SizeUnknown int64 = -1

// StagedMedia 解析完來源後可交付上傳的媒體描述
// Streamable=true 時 Body 為零緩衝直通串流；否則內容已被完整緩衝在 Buffer
type StagedMedia struct {
	ContentType string
	SizeBytes   int64
	AccessURL   string // 可重複抓取的穩定連結（直通時為來源 URL）
	Streamable  bool

	Body   io.ReadCloser `json:"-"`
	Buffer []byte        `json:"-"`
}

// 上傳目的地的欄位長度上限
const (
	// MaxTitleChars youtube title limit
	MaxTitleChars = 100
	// MaxDescriptionChars youtube description limit
	MaxDescriptionChars = 5000
)

// TruncateRunes 取前 n 個字元，對已符合長度的字串為恆等
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// UploadRequest 上傳階段的輸入
type UploadRequest struct {
	AccessToken string
	Source      StagedMedia
	Title       string
	Description string
}

// NewUploadRequest 套用靜默截斷後建立 UploadRequest
func NewUploadRequest(accessToken string, source StagedMedia, title, description string) UploadRequest {
	return UploadRequest{
		AccessToken: accessToken,
		Source:      source,
		Title:       TruncateRunes(title, MaxTitleChars),
		Description: TruncateRunes(description, MaxDescriptionChars),
	}
}

// UploadResult 整條 pipeline 成功後的最終產物
type UploadResult struct {
	DestinationVideoID string `json:"video_id"`
	DestinationURL     string `json:"video_url"`
}

// VideoInfo 影片中繼資料查詢結果
type VideoInfo struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channel_title"`
	PublishedAt  string `json:"published_at"`
	ViewCount    string `json:"view_count"`
	Duration     string `json:"duration"`
}

var isoDurationRe = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// FormatISODuration PT#H#M#S 轉為 H:MM:SS 或 M:SS
func FormatISODuration(iso string) string {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return "0:00"
	}

	atoi := func(s string) int {
		n := 0
		for _, c := range s {
			n = n*10 + int(c-'0')
		}
		return n
	}
	hours, minutes, seconds := atoi(m[1]), atoi(m[2]), atoi(m[3])

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// ContentTypeFromName 副檔名推斷，僅在來源未聲明 content type 時當退路
func ContentTypeFromName(name string) string {
	switch {
	case strings.HasSuffix(name, ".webm"):
		return "video/webm"
	case strings.HasSuffix(name, ".mov"):
		return "video/quicktime"
	case strings.HasSuffix(name, ".mkv"):
		return "video/x-matroska"
	case strings.HasSuffix(name, ".mp4"):
		return "video/mp4"
	default:
		return "video/*"
	}
}

// MigrationStatus definition migration record status
type MigrationStatus string

const (
	// MigrationResolving resolving a source url through the provider cascade
	MigrationResolving MigrationStatus = "resolving"
	// MigrationStaging moving bytes to durable storage or pass-through
	MigrationStaging MigrationStatus = "staging"
	// MigrationUploading two-phase upload in progress
	MigrationUploading MigrationStatus = "uploading"
	// MigrationCompleted migration finished
	MigrationCompleted MigrationStatus = "completed"
	// MigrationFailed migration failed
	MigrationFailed MigrationStatus = "failed"
)

// MigrationRecord 定義遷移紀錄模型
type MigrationRecord struct {
	ID            uint `gorm:"primaryKey"`
	ReferenceKind string
	SourceRef     string // video id、direct url 或 object key
	Title         string
	Provider      string // 勝出的 provider 名稱
	Status        string
	SizeBytes     int64
	DestinationID string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MigrateVideoReq usecase migrate video request
type MigrateVideoReq struct {
	Reference   VideoReference
	Title       string
	Description string
	Pair        TokenPair
}

// MigrateVideoRes usecase migrate video response
type MigrateVideoRes struct {
	Result UploadResult
	// pipeline 期間若有刷新 token，呼叫端負責持久化
	RefreshedPair TokenPair
	RecordID      uint
}

// EventQueueName 遷移完成事件 queue
const EventQueueName = "migration_events"

// MigrationEvent 發佈到事件 queue 的訊息
type MigrationEvent struct {
	RecordID           uint   `json:"record_id"`
	SourceRef          string `json:"source_ref"`
	Provider           string `json:"provider"`
	DestinationVideoID string `json:"destination_video_id"`
	SizeBytes          int64  `json:"size_bytes"`
}
