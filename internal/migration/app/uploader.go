package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"video_migrate_service/internal/migration/domain"
	errprocess "video_migrate_service/pkg/err"
	"video_migrate_service/pkg/logger"

	"go.uber.org/zap"
)

const defaultUploadTimeout = 30 * time.Minute

// resumable upload 起始端點，測試時可替換
var uploadInitiateURL = "https://www.googleapis.com/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status"

// UploadOrchestrator 兩階段 resumable 上傳，授權失敗後至多刷新重試一次
type UploadOrchestrator interface {
	Upload(ctx context.Context, req domain.UploadRequest, pair domain.TokenPair) (*domain.UploadResult, domain.TokenPair, error)
}

type uploadOrchestrator struct {
	TokenManager TokenManager

	client  *http.Client
	timeout time.Duration
}

// NewUploadOrchestrator create a new UploadOrchestrator
func NewUploadOrchestrator(tokenManager TokenManager) UploadOrchestrator {
	return &uploadOrchestrator{
		TokenManager: tokenManager,
		client:       &http.Client{},
		timeout:      defaultUploadTimeout,
	}
}

// Upload 先試一次，授權類失敗則反應式刷新後再試最後一次
func (u *uploadOrchestrator) Upload(ctx context.Context, req domain.UploadRequest, pair domain.TokenPair) (*domain.UploadResult, domain.TokenPair, error) {
	result, err := u.attempt(ctx, &req, true)
	if err == nil {
		return result, pair, nil
	}

	if !u.TokenManager.IsAuthError(err.Error()) {
		return nil, pair, err
	}

	renewed, refreshErr := u.TokenManager.RefreshAfterAuthFailure(ctx, pair)
	if refreshErr != nil {
		return nil, pair, refreshErr
	}

	req.AccessToken = renewed.AccessToken
	result, err = u.attempt(ctx, &req, false)
	if err != nil {
		// 刷新後仍被拒 → 會話終結，不再刷新第二次
		if u.TokenManager.IsAuthError(err.Error()) {
			errprocess.Set(fmt.Sprintf("upload still unauthorized after refresh : %v", err))
			return nil, renewed, domain.ErrSessionExpired
		}
		return nil, renewed, err
	}

	return result, renewed, nil
}

// attempt 單次完整兩階段上傳
func (u *uploadOrchestrator) attempt(ctx context.Context, req *domain.UploadRequest, firstAttempt bool) (*domain.UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	body, size, err := u.openMedia(ctx, &req.Source, firstAttempt)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	sessionURL, err := u.initiate(ctx, req, size)
	if err != nil {
		// 起始失敗時不進入傳輸階段，media 未送出任何位元組
		return nil, err
	}

	return u.transfer(ctx, sessionURL, req, body, size)
}

// openMedia 每次嘗試都取得可重新讀取的 body
// 直通串流只能消耗一次，重試時改從穩定的 access url 重新抓取
func (u *uploadOrchestrator) openMedia(ctx context.Context, src *domain.StagedMedia, firstAttempt bool) (io.ReadCloser, int64, error) {
	if src.Buffer != nil {
		return io.NopCloser(bytes.NewReader(src.Buffer)), int64(len(src.Buffer)), nil
	}
	if firstAttempt && src.Body != nil {
		return src.Body, src.SizeBytes, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, src.AccessURL, nil)
	if err != nil {
		return nil, 0, errprocess.Set(fmt.Sprintf("accessURL[%s] build media request failed : %v", src.AccessURL, err))
	}
	resp, err := u.client.Do(httpReq)
	if err != nil {
		return nil, 0, errprocess.Set(fmt.Sprintf("accessURL[%s] re-fetch media failed : %v", src.AccessURL, err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, errprocess.Set(fmt.Sprintf("accessURL[%s] re-fetch media returned %d", src.AccessURL, resp.StatusCode))
	}

	size := resp.ContentLength
	if size < 0 {
		size = src.SizeBytes
	}
	return resp.Body, size, nil
}

type uploadMetadata struct {
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		CategoryID  string `json:"categoryId"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus           string `json:"privacyStatus"`
		SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
	} `json:"status"`
}

// initiate 第一階段：送 metadata 換取 resumable session url
func (u *uploadOrchestrator) initiate(ctx context.Context, req *domain.UploadRequest, size int64) (string, error) {
	var meta uploadMetadata
	meta.Snippet.Title = req.Title
	meta.Snippet.Description = req.Description
	meta.Snippet.CategoryID = "22"
	meta.Status.PrivacyStatus = "private"
	meta.Status.SelfDeclaredMadeForKids = false

	payload, _ := json.Marshal(meta)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadInitiateURL, bytes.NewReader(payload))
	if err != nil {
		return "", &domain.InitiationError{Message: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	if size >= 0 {
		httpReq.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	}
	httpReq.Header.Set("X-Upload-Content-Type", req.Source.ContentType)

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return "", &domain.InitiationError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parseErrorBody(resp)
		errprocess.Set(fmt.Sprintf("upload initiation returned %d : %s", resp.StatusCode, msg))
		return "", &domain.InitiationError{Message: msg}
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		// 缺 session url 視同起始失敗
		return "", &domain.InitiationError{Message: "no upload URL received from YouTube"}
	}

	return sessionURL, nil
}

// transfer 第二階段：往 session url 送媒體位元組
func (u *uploadOrchestrator) transfer(ctx context.Context, sessionURL string, req *domain.UploadRequest, body io.Reader, size int64) (*domain.UploadResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, body)
	if err != nil {
		return nil, &domain.TransferError{Message: err.Error()}
	}
	if size >= 0 {
		httpReq.ContentLength = size
	}
	httpReq.Header.Set("Content-Type", req.Source.ContentType)

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return nil, &domain.TransferError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parseErrorBody(resp)
		errprocess.Set(fmt.Sprintf("upload transfer returned %d : %s", resp.StatusCode, msg))
		return nil, &domain.TransferError{Message: msg}
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil || res.ID == "" {
		return nil, &domain.TransferError{Message: "upload response missing video id"}
	}

	logger.Log.Info("upload finished", zap.String("video_id", res.ID), zap.Int64("size", size))
	return &domain.UploadResult{
		DestinationVideoID: res.ID,
		DestinationURL:     "https://www.youtube.com/watch?v=" + res.ID,
	}, nil
}

// parseErrorBody 盡力取出結構化錯誤訊息，取不到就回原始內容
func parseErrorBody(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var structured struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Error.Message != "" {
		return structured.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}

	return string(raw)
}
