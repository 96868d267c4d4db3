package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"video_migrate_service/internal/migration/app"
	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/internal/migration/repository"
	"video_migrate_service/pkg/database"
	"video_migrate_service/pkg/logger"
	"video_migrate_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const defaultSessionTTL = 30 * 24 * time.Hour

// MigrateHandler definition migration handler
// MigrateHandler 定義遷移 pipeline 的 HTTP 處理器
type MigrateHandler struct {
	Usecase    app.MigrateUseCase
	OAuthRepo  repository.OAuthRepo
	Sessions   database.RedisRepository[domain.TokenSession]
	SessionTTL time.Duration
}

// MigrateReq 遷移請求 body
type MigrateReq struct {
	URL         string `json:"url"`
	VideoID     string `json:"video_id"`
	DirectURL   string `json:"direct_url"`
	ObjectKey   string `json:"object_key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SessionID   string `json:"session_id"`
}

// Migrate 執行整條遷移 pipeline
func (h *MigrateHandler) Migrate(c *fiber.Ctx) error {
	var req MigrateReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ref, ok := buildReference(req)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "a YouTube URL, video id, direct URL or object key is required"})
	}

	if req.SessionID == "" {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "session_id is required, connect your YouTube account first"})
	}
	session, err := h.Sessions.Get(c.Context(), sessionKey(req.SessionID))
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": domain.ErrSessionExpired.Error()})
	}

	res, err := h.Usecase.MigrateVideo(c.Context(), domain.MigrateVideoReq{
		Reference:   ref,
		Title:       req.Title,
		Description: req.Description,
		Pair:        session.Pair,
	})
	if err != nil {
		return h.migrateError(c, req.SessionID, err)
	}

	// pipeline 期間刷新過 token 就回存，下一次遷移直接可用
	if res.RefreshedPair.AccessToken != session.Pair.AccessToken {
		session.Pair = res.RefreshedPair
		if err := h.Sessions.Set(c.Context(), sessionKey(req.SessionID), session, h.sessionTTL()); err != nil {
			logger.Log.Warn("persist refreshed session failed: " + err.Error())
		}
	}

	return c.JSON(fiber.Map{
		"video_id":  res.Result.DestinationVideoID,
		"video_url": res.Result.DestinationURL,
		"record_id": res.RecordID,
	})
}

// migrateError 依失敗型態決定狀態碼，錯誤訊息原樣轉交
func (h *MigrateHandler) migrateError(c *fiber.Ctx, sessionID string, err error) error {
	if errors.Is(err, domain.ErrSessionExpired) {
		// 會話終結，清掉已保存的授權
		if delErr := h.Sessions.Del(c.Context(), sessionKey(sessionID)); delErr != nil {
			logger.Log.Warn("delete expired session failed: " + delErr.Error())
		}
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var agg *domain.AggregateFailure
	if errors.As(err, &agg) {
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	var sizeErr *domain.SizeExceededError
	if errors.As(err, &sizeErr) {
		return c.Status(http.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// GetVideoInfo 查詢來源影片 metadata
func (h *MigrateHandler) GetVideoInfo(c *fiber.Ctx) error {
	videoID := c.Params("id")
	if id := domain.ExtractYouTubeID(videoID); id != "" {
		videoID = id
	}

	info, err := h.Usecase.GetVideoInfo(c.Context(), videoID)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(info)
}

// GetOAuthURL 產生 Google consent 頁連結
func (h *MigrateHandler) GetOAuthURL(c *fiber.Ctx) error {
	redirectURI := c.Query("redirect_uri")
	if redirectURI == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "redirect_uri is required"})
	}

	state, err := token.GenerateStateFunc(redirectURI, uuid.NewString(), "migrate_service")
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "generate state failed"})
	}

	return c.JSON(fiber.Map{"auth_url": h.OAuthRepo.GetAuthorizationURL(redirectURI, state)})
}

// OAuthCallbackReq callback body
type OAuthCallbackReq struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri"`
}

// OAuthCallback 驗證 state、換 token 並建立會話
func (h *MigrateHandler) OAuthCallback(c *fiber.Ctx) error {
	var req OAuthCallbackReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Code == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	claims, err := token.ParseStateFunc(req.State)
	if err != nil || claims.RedirectURI != req.RedirectURI {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid state"})
	}

	pair, channel, err := h.OAuthRepo.ExchangeCode(c.Context(), req.Code, req.RedirectURI)
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "authorization code exchange failed"})
	}

	session := domain.TokenSession{
		SessionID: uuid.NewString(),
		Pair:      pair,
		Channel:   channel,
	}
	if err := h.Sessions.Set(c.Context(), sessionKey(session.SessionID), session, h.sessionTTL()); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "save session failed"})
	}

	return c.JSON(fiber.Map{
		"session_id": session.SessionID,
		"channel":    channel,
	})
}

// History 最近的遷移紀錄
func (h *MigrateHandler) History(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	records, err := h.Usecase.History(limit)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"records": records})
}

// Health liveness probe
func (h *MigrateHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *MigrateHandler) sessionTTL() time.Duration {
	if h.SessionTTL > 0 {
		return h.SessionTTL
	}
	return defaultSessionTTL
}

func sessionKey(id string) string {
	return "migrate:session:" + id
}

// buildReference 從請求欄位決定來源參照，優先順序 url > video_id > direct_url > object_key
func buildReference(req MigrateReq) (domain.VideoReference, bool) {
	if req.URL != "" {
		if id := domain.ExtractYouTubeID(req.URL); id != "" {
			return domain.VideoReference{Kind: domain.ReferenceYouTube, YouTubeID: id}, true
		}
		return domain.VideoReference{Kind: domain.ReferenceDirectURL, DirectURL: req.URL}, true
	}
	if req.VideoID != "" {
		return domain.VideoReference{Kind: domain.ReferenceYouTube, YouTubeID: req.VideoID}, true
	}
	if req.DirectURL != "" {
		return domain.VideoReference{Kind: domain.ReferenceDirectURL, DirectURL: req.DirectURL}, true
	}
	if req.ObjectKey != "" {
		return domain.VideoReference{Kind: domain.ReferenceLocalObject, LocalObject: req.ObjectKey}, true
	}
	return domain.VideoReference{}, false
}
