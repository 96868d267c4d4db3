package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"video_migrate_service/internal/migration/api/handlers"
	"video_migrate_service/internal/migration/api/router"
	"video_migrate_service/internal/migration/app"
	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/internal/migration/providers"
	"video_migrate_service/internal/migration/repository"
	"video_migrate_service/pkg/config"
	"video_migrate_service/pkg/database"
	"video_migrate_service/pkg/logger"
	testtool "video_migrate_service/pkg/test_tool"
	"video_migrate_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.MigrateService, config.EnvConfig.MigrateServiceLogPath)

	cfg := config.LoadConfig[config.Migrate](config.EnvConfig.MigrateService, config.EnvConfig.MigrateServiceYAMLPath)

	if cfg.OAuth.StateSecret != "" {
		token.StateSecret = []byte(cfg.OAuth.StateSecret)
	}

	go testtool.StartPprof()

	// 1. 連線 PostgreSQL
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr: dsn,

		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", dsn)),
			zap.Error(err),
		)
	}

	// 自動遷移紀錄資料表
	if err := db.AutoMigrate(&domain.MigrationRecord{}); err != nil {
		log.Fatalf("資料表遷移失敗: %v", err)
	}
	recordRepo := repository.NewMigrationRecordRepo(db)

	// 2. 初始化 MinIO 客戶端
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:   fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:       cfg.MinIO.User,
		Password:   cfg.MinIO.Password,
		BucketName: cfg.MinIO.BucketName,
		UseSSL:     cfg.MinIO.UseSSL,

		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: cfg.MinIO.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minio after retries", zap.Error(err))
	}

	// 3. Redis 保存授權會話
	sessionRepo, err := database.NewRedisRepository[domain.TokenSession](cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 4. RabbitMQ 發佈遷移完成事件
	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		log.Fatalf("RabbitMQ 連線失敗: %v", err)
	}
	defer conn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, cfg.RabbitMQ.RetryInterval)
	if err != nil {
		log.Fatalf("取得 RabbitMQ Channel 失敗: %v", err)
	}
	defer rabbitChannel.Close()

	if _, err := rabbitChannel.QueueDeclare(
		domain.EventQueueName, // queue name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // arguments
	); err != nil {
		log.Fatalf("Queue Declare failed: %v", err)
	}
	rabbitRepo := database.NewRabbitRepository(rabbitChannel)

	// 5. 組裝 pipeline
	oauthRepo := repository.NewOAuthRepo(cfg.OAuth)
	metadataRepo := repository.NewMetadataRepo(cfg.YouTube)
	tokenManager := app.NewTokenManager(oauthRepo, cfg.Providers)

	usecase := app.NewMigrateUseCase(
		providers.NewCascadeResolver(cfg.Providers),
		app.NewMediaStager(minioClient, cfg.Stager),
		tokenManager,
		app.NewUploadOrchestrator(tokenManager),
		recordRepo,
		metadataRepo,
		rabbitRepo,
		cfg.Stager.DurableStaging,
	)

	// 6. 建立 Fiber 應用
	r := fiber.New()

	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.MigrateServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	migrateHandler := &handlers.MigrateHandler{
		Usecase:    usecase,
		OAuthRepo:  oauthRepo,
		Sessions:   sessionRepo,
		SessionTTL: cfg.OAuth.SessionTTL * time.Minute,
	}
	router.RegisterRoutes(r, migrateHandler)

	// 7. 啟動 API 服務
	if err := r.Listen(cfg.IP + ":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
