package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/internal/migration/repository"
	errprocess "video_migrate_service/pkg/err"
	"video_migrate_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// SourceResolver cascade 的抽象，方便 usecase 測試替換
type SourceResolver interface {
	Resolve(ctx context.Context, videoID string) (sourceURL string, providerName string, attempts []domain.ProviderAttempt, err error)
}

// MigrateUseCase definition migration pipeline operations
type MigrateUseCase interface {
	MigrateVideo(ctx context.Context, req domain.MigrateVideoReq) (*domain.MigrateVideoRes, error)
	GetVideoInfo(ctx context.Context, videoID string) (*domain.VideoInfo, error)
	History(limit int) ([]domain.MigrationRecord, error)
}

type migrateUseCase struct {
	Resolver     SourceResolver
	Stager       MediaStager
	TokenManager TokenManager
	Uploader     UploadOrchestrator
	RecordRepo   repository.MigrationRecordRepo
	MetadataRepo repository.MetadataRepo
	Rabbit       RabbitPublisher

	durableStaging bool
}

// RabbitPublisher 事件發佈的最小介面
type RabbitPublisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewMigrateUseCase create a new MigrateUseCase
func NewMigrateUseCase(
	resolver SourceResolver,
	stager MediaStager,
	tokenManager TokenManager,
	uploader UploadOrchestrator,
	recordRepo repository.MigrationRecordRepo,
	metadataRepo repository.MetadataRepo,
	rabbit RabbitPublisher,
	durableStaging bool,
) MigrateUseCase {
	return &migrateUseCase{
		Resolver:       resolver,
		Stager:         stager,
		TokenManager:   tokenManager,
		Uploader:       uploader,
		RecordRepo:     recordRepo,
		MetadataRepo:   metadataRepo,
		Rabbit:         rabbit,
		durableStaging: durableStaging,
	}
}

// MigrateVideo 解析來源 → 轉移位元組 → 確保授權 → 兩階段上傳
func (u *migrateUseCase) MigrateVideo(ctx context.Context, req domain.MigrateVideoReq) (*domain.MigrateVideoRes, error) {
	record := &domain.MigrationRecord{
		ReferenceKind: string(req.Reference.Kind),
		SourceRef:     sourceRefOf(req.Reference),
		Title:         req.Title,
		Status:        string(domain.MigrationResolving),
	}
	if err := u.RecordRepo.Create(record); err != nil {
		return nil, err
	}

	sourceURL, providerName, err := u.resolveSource(ctx, req.Reference)
	if err != nil {
		u.markFailed(record, err)
		return nil, err
	}
	record.Provider = providerName

	u.updateStatus(record, domain.MigrationStaging)
	staged, err := u.stage(ctx, req.Reference, sourceURL)
	if err != nil {
		u.markFailed(record, err)
		return nil, err
	}
	record.SizeBytes = staged.SizeBytes

	pair, err := u.TokenManager.EnsureValid(ctx, req.Pair)
	if err != nil {
		u.markFailed(record, err)
		return nil, err
	}

	title, description := u.resolveMetadata(ctx, req)
	record.Title = title
	uploadReq := domain.NewUploadRequest(pair.AccessToken, *staged, title, description)

	u.updateStatus(record, domain.MigrationUploading)
	result, finalPair, err := u.Uploader.Upload(ctx, uploadReq, pair)
	if err != nil {
		u.markFailed(record, err)
		return nil, err
	}

	record.Status = string(domain.MigrationCompleted)
	record.DestinationID = result.DestinationVideoID
	if err := u.RecordRepo.Update(record); err != nil {
		logger.Log.Warn("persist completed record failed: " + err.Error())
	}

	u.publishEvent(record, result)

	return &domain.MigrateVideoRes{
		Result:        *result,
		RefreshedPair: finalPair,
		RecordID:      record.ID,
	}, nil
}

// GetVideoInfo 查詢來源影片 metadata
func (u *migrateUseCase) GetVideoInfo(ctx context.Context, videoID string) (*domain.VideoInfo, error) {
	return u.MetadataRepo.GetVideoInfo(ctx, videoID)
}

// History 最近的遷移紀錄
func (u *migrateUseCase) History(limit int) ([]domain.MigrationRecord, error) {
	return u.RecordRepo.ListRecent(limit)
}

func (u *migrateUseCase) resolveSource(ctx context.Context, ref domain.VideoReference) (string, string, error) {
	switch ref.Kind {
	case domain.ReferenceYouTube:
		sourceURL, providerName, _, err := u.Resolver.Resolve(ctx, ref.YouTubeID)
		return sourceURL, providerName, err
	case domain.ReferenceDirectURL:
		return ref.DirectURL, "direct", nil
	case domain.ReferenceLocalObject:
		// 本地物件不需要解析，交給 stage 簽名
		return "", "local", nil
	default:
		return "", "", errprocess.Set(fmt.Sprintf("referenceKind[%s] is not supported", ref.Kind))
	}
}

func (u *migrateUseCase) stage(ctx context.Context, ref domain.VideoReference, sourceURL string) (*domain.StagedMedia, error) {
	if ref.Kind == domain.ReferenceLocalObject {
		return u.Stager.StageLocalObject(ctx, ref.LocalObject)
	}
	if u.durableStaging {
		return u.Stager.StageDurable(ctx, sourceURL, sourceRefOf(ref))
	}
	return u.Stager.Stage(ctx, sourceURL)
}

// resolveMetadata 呼叫端沒給 title 時用來源 metadata 預填
func (u *migrateUseCase) resolveMetadata(ctx context.Context, req domain.MigrateVideoReq) (string, string) {
	title, description := req.Title, req.Description
	if title != "" || req.Reference.Kind != domain.ReferenceYouTube {
		if title == "" {
			title = "Migrated video"
		}
		return title, description
	}

	info, err := u.MetadataRepo.GetVideoInfo(ctx, req.Reference.YouTubeID)
	if err != nil {
		logger.Log.Warn("metadata lookup for title failed: " + err.Error())
		return "Migrated video " + req.Reference.YouTubeID, description
	}

	if description == "" {
		description = info.Description
	}
	return info.Title, description
}

func (u *migrateUseCase) updateStatus(record *domain.MigrationRecord, status domain.MigrationStatus) {
	record.Status = string(status)
	// 狀態只是輔助資訊，更新失敗不中斷遷移
	if err := u.RecordRepo.Update(record); err != nil {
		logger.Log.Warn("update record status failed: " + err.Error())
	}
}

func (u *migrateUseCase) markFailed(record *domain.MigrationRecord, cause error) {
	record.Status = string(domain.MigrationFailed)
	record.ErrorMessage = cause.Error()
	if err := u.RecordRepo.Update(record); err != nil {
		logger.Log.Warn("persist failed record failed: " + err.Error())
	}
	if errors.Is(cause, domain.ErrSessionExpired) {
		logger.Log.Warn("migration aborted, session expired", zap.Uint("record_id", record.ID))
	}
}

func (u *migrateUseCase) publishEvent(record *domain.MigrationRecord, result *domain.UploadResult) {
	if u.Rabbit == nil {
		return
	}

	event := domain.MigrationEvent{
		RecordID:           record.ID,
		SourceRef:          record.SourceRef,
		Provider:           record.Provider,
		DestinationVideoID: result.DestinationVideoID,
		SizeBytes:          record.SizeBytes,
	}
	body, _ := json.Marshal(event)

	err := u.Rabbit.Publish("", domain.EventQueueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		logger.Log.Warn("publish migration event failed: " + err.Error())
	}
}

func sourceRefOf(ref domain.VideoReference) string {
	switch ref.Kind {
	case domain.ReferenceYouTube:
		return ref.YouTubeID
	case domain.ReferenceDirectURL:
		return ref.DirectURL
	case domain.ReferenceLocalObject:
		return ref.LocalObject
	default:
		return ""
	}
}
