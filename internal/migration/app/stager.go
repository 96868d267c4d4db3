package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
	"video_migrate_service/pkg/database"
	errprocess "video_migrate_service/pkg/err"

	"github.com/google/uuid"
)

// 預設緩衝上限與簽名連結效期
const (
	defaultMaxBufferBytes = int64(150) * 1024 * 1024
	defaultSignTTL        = 60 * time.Minute
	defaultStageTimeout   = 10 * time.Minute
)

// MediaStager 將來源位元組搬到可交付上傳的形態
type MediaStager interface {
	Stage(ctx context.Context, sourceURL string) (*domain.StagedMedia, error)
	StageDurable(ctx context.Context, sourceURL, refKey string) (*domain.StagedMedia, error)
	StageLocalObject(ctx context.Context, objectKey string) (*domain.StagedMedia, error)
}

type mediaStager struct {
	MinioClient database.MinIOClientRepo

	client    *http.Client
	maxBuffer int64
	signTTL   time.Duration
	timeout   time.Duration
}

// NewMediaStager create a new MediaStager
func NewMediaStager(minIO database.MinIOClientRepo, cfg config.StagerConfig) MediaStager {
	maxBuffer := defaultMaxBufferBytes
	if cfg.MaxBufferMB > 0 {
		maxBuffer = int64(cfg.MaxBufferMB) * 1024 * 1024
	}
	signTTL := defaultSignTTL
	if cfg.SignedURLTTLMins > 0 {
		signTTL = time.Duration(cfg.SignedURLTTLMins) * time.Minute
	}
	timeout := defaultStageTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &mediaStager{
		MinioClient: minIO,
		client:      &http.Client{},
		maxBuffer:   maxBuffer,
		signTTL:     signTTL,
		timeout:     timeout,
	}
}

// Stage 取回來源，宣告長度時走零緩衝直通，否則受限緩衝
func (s *mediaStager) Stage(ctx context.Context, sourceURL string) (*domain.StagedMedia, error) {
	resp, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	contentType := resolveContentType(resp, sourceURL)

	// 宣告長度 → 直通串流，位元組邊到邊流不進記憶體
	if resp.ContentLength >= 0 {
		return &domain.StagedMedia{
			ContentType: contentType,
			SizeBytes:   resp.ContentLength,
			AccessURL:   sourceURL,
			Streamable:  true,
			Body:        resp.Body,
		}, nil
	}

	// 長度未知 → 退路：受限緩衝成單一固定大小 payload
	defer resp.Body.Close()
	buf, err := s.bufferLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	return &domain.StagedMedia{
		ContentType: contentType,
		SizeBytes:   int64(len(buf)),
		AccessURL:   sourceURL,
		Streamable:  false,
		Buffer:      buf,
	}, nil
}

// StageDurable 將來源寫入唯一命名的 object path 後取得限時簽名連結
func (s *mediaStager) StageDurable(ctx context.Context, sourceURL, refKey string) (*domain.StagedMedia, error) {
	resp, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resolveContentType(resp, sourceURL)
	objectName := fmt.Sprintf("staged/%s/%d_%s", refKey, time.Now().Unix(), uuid.NewString())

	size := resp.ContentLength
	var body io.Reader = resp.Body
	if size < 0 {
		// 長度未知時同樣先受限緩衝，避免無上限佔用
		buf, err := s.bufferLimited(resp.Body)
		if err != nil {
			return nil, err
		}
		size = int64(len(buf))
		body = bytes.NewReader(buf)
	}

	if err := s.MinioClient.UploadStream(ctx, objectName, body, size, contentType); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("sourceURL[%s] write staged object failed : %v", sourceURL, err))
	}

	accessURL, err := s.MinioClient.PresignGetURL(ctx, objectName, s.signTTL)
	if err != nil {
		// 簽名不可用時退到永久公開連結
		accessURL = s.MinioClient.PublicURL(objectName)
	}

	return &domain.StagedMedia{
		ContentType: contentType,
		SizeBytes:   size,
		AccessURL:   accessURL,
		Streamable:  true,
	}, nil
}

// StageLocalObject 已在物件儲存的本地上傳檔，直接簽名供上傳階段抓取
func (s *mediaStager) StageLocalObject(ctx context.Context, objectKey string) (*domain.StagedMedia, error) {
	accessURL, err := s.MinioClient.PresignGetURL(ctx, objectKey, s.signTTL)
	if err != nil {
		accessURL = s.MinioClient.PublicURL(objectKey)
	}

	return &domain.StagedMedia{
		ContentType: domain.ContentTypeFromName(objectKey),
		SizeBytes:   domain.SizeUnknown,
		AccessURL:   accessURL,
		Streamable:  true,
	}, nil
}

func (s *mediaStager) fetch(ctx context.Context, sourceURL string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		cancel()
		return nil, errprocess.Set(fmt.Sprintf("sourceURL[%s] build fetch request failed : %v", sourceURL, err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, errprocess.Set(fmt.Sprintf("sourceURL[%s] fetch source failed : %v", sourceURL, err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, errprocess.Set(fmt.Sprintf("sourceURL[%s] fetch source returned %d", sourceURL, resp.StatusCode))
	}

	// body 讀完或關閉時釋放 timeout context
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// bufferLimited 緩衝到上限，超過即失敗且不往目的地送任何位元組
func (s *mediaStager) bufferLimited(r io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, s.maxBuffer+1))
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("buffer source failed : %v", err))
	}
	if int64(len(buf)) > s.maxBuffer {
		sizeErr := &domain.SizeExceededError{LimitBytes: s.maxBuffer}
		errprocess.Set(sizeErr.Error())
		return nil, sizeErr
	}
	return buf, nil
}

// resolveContentType provider 聲明優先，副檔名推斷只當退路
func resolveContentType(resp *http.Response, sourceURL string) string {
	if ct := resp.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return domain.ContentTypeFromName(sourceURL)
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
