package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/lostfound/internal/config"
	"github.com/quocanhngo/lostfound/internal/database"
	"github.com/quocanhngo/lostfound/internal/handler"
	"github.com/quocanhngo/lostfound/internal/repository"
	"github.com/quocanhngo/lostfound/internal/service"
	"github.com/quocanhngo/lostfound/internal/ws"
	"github.com/quocanhngo/lostfound/migrations"
	"github.com/quocanhngo/lostfound/pkg/auth"
	"github.com/quocanhngo/lostfound/pkg/logger"
	"github.com/quocanhngo/lostfound/pkg/push"
	"github.com/quocanhngo/lostfound/pkg/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title           Lost & Found API
// @version         1.0
// @description     Lost and found reports with automatic matching, notifications and item chats.

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	defer log.Sync()

	log.Info("🚀 Starting Lost & Found API Server", zap.String("env", cfg.App.Env))
	production := cfg.App.Env == "production"

	// ==================== Database (PostgreSQL) ====================
	db, err := database.Open(cfg.DB.DSN(), production)
	if err != nil {
		log.Fatal("❌ Failed to connect to database", zap.Error(err))
	}
	log.Info("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.Warn("⚠️ Migration warning, falling back to GORM AutoMigrate", zap.Error(err))
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal("❌ Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("❌ Failed to connect to Redis", zap.Error(err))
	}
	log.Info("✅ Connected to Redis")

	// ==================== External delivery ====================
	pushClient := push.NewFCM(ctx, push.Config{
		CredentialsFile: cfg.Firebase.CredentialsFile,
		CredentialsJSON: cfg.Firebase.CredentialsJSON,
		ChunkSize:       cfg.Push.ChunkSize,
	}, log)

	var photos service.PhotoStore
	minioStorage, err := storage.NewMinIO(ctx, storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	}, log)
	if err != nil {
		log.Warn("⚠️ MinIO not available, photo upload disabled", zap.Error(err))
	} else {
		photos = minioStorage
		log.Info("✅ Connected to MinIO")
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	chatRepo := repository.NewChatRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb, log)
	go hub.Run(ctx)

	// Services
	notificationService := service.NewNotificationService(notifRepo, deviceRepo, userRepo, hub, pushClient, cfg.Fanout.Workers, log)
	matchService := service.NewMatchService(itemRepo, matchRepo, notificationService, cfg.Matching.Threshold, cfg.Matching.WindowDays, log)
	outbox := service.NewOutboxProcessor(outboxRepo, itemRepo, matchService, notificationService, service.OutboxConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		Lease:        cfg.Outbox.Lease,
	}, log)
	itemService := service.NewItemService(itemRepo, outbox, notificationService, photos, log)
	chatService := service.NewChatService(chatRepo, msgRepo, itemRepo, userRepo, hub, ws.ChatRoom, notificationService, log)
	deviceService := service.NewDeviceService(deviceRepo)

	// Background workers
	go outbox.Run(ctx)
	go service.RunRetention(ctx, notificationService, cfg.Retention.MaxAge, cfg.Retention.SweepInterval, log)

	// ==================== Gin Router ====================
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.RouterConfig{
		CORSOrigins:   cfg.CORS.Origins,
		JWT:           jwtManager,
		Redis:         rdb,
		Log:           log,
		Items:         handler.NewItemHandler(itemService, matchService),
		Notifications: handler.NewNotificationHandler(notificationService),
		Devices:       handler.NewDeviceHandler(deviceService),
		Chats:         handler.NewChatHandler(chatService),
		WS:            handler.NewWSHandler(hub, chatService, jwtManager, rdb, cfg.CORS.Origins, log),
	})

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server failed", zap.Error(err))
		}
	}()

	log.Info("🌐 Lost & Found API running", zap.String("addr", "http://0.0.0.0:"+cfg.App.Port))
	log.Info("📋 API docs", zap.String("url", "http://0.0.0.0:"+cfg.App.Port+"/swagger/index.html"))
	log.Info("🔌 WebSocket", zap.String("url", "ws://0.0.0.0:"+cfg.App.Port+"/ws?token=<jwt>"))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Server forced to shutdown", zap.Error(err))
	}

	cancel()
	rdb.Close()
	log.Info("✅ Server exited gracefully")
}
