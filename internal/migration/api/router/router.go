package router

import (
	"video_migrate_service/internal/migration/api/handlers"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 注册遷移相關的路由
func RegisterRoutes(app *fiber.App, migrateHandler *handlers.MigrateHandler) {
	app.Post("/migrate", migrateHandler.Migrate)
	app.Get("/video/info/:id", migrateHandler.GetVideoInfo)
	app.Get("/oauth/url", migrateHandler.GetOAuthURL)
	app.Post("/oauth/callback", migrateHandler.OAuthCallback)
	app.Get("/history", migrateHandler.History)
	app.Get("/health", migrateHandler.Health)
}
