package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/lostfound/internal/middleware"
	"github.com/quocanhngo/lostfound/pkg/auth"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP surface needs
type RouterConfig struct {
	CORSOrigins []string
	JWT         *auth.JWTManager
	Redis       *redis.Client // optional; enables the token blacklist
	Log         *zap.Logger

	Items         *ItemHandler
	Notifications *NotificationHandler
	Devices       *DeviceHandler
	Chats         *ChatHandler
	WS            *WSHandler
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(middleware.PrometheusMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// swagger.json is generated by `swag init` into ./docs
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	router.GET("/metrics", middleware.PrometheusHandler())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "lostfound-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWT, cfg.Redis))
	{
		// Items
		api.POST("/items", cfg.Items.CreateItem)
		api.GET("/items/:id", cfg.Items.GetItem)
		api.GET("/items/:id/matches", cfg.Items.GetMatches)
		api.POST("/items/:id/claim", cfg.Items.ClaimItem)
		api.POST("/items/:id/resolve", cfg.Items.ResolveItem)
		api.POST("/items/:id/photo", cfg.Items.UploadPhoto)

		// Notifications
		api.GET("/notifications", cfg.Notifications.ListNotifications)
		api.GET("/notifications/unread-count", cfg.Notifications.UnreadCount)
		api.PATCH("/notifications/read-all", cfg.Notifications.MarkAllRead)
		api.PATCH("/notifications/:id/read", cfg.Notifications.MarkRead)
		api.DELETE("/notifications/:id", cfg.Notifications.DeleteNotification)

		// Devices
		api.POST("/devices", cfg.Devices.RegisterDevice)
		api.DELETE("/devices", cfg.Devices.UnregisterDevice)

		// Chats
		api.POST("/chats", cfg.Chats.OpenChat)
		api.GET("/chats", cfg.Chats.GetChats)
		api.GET("/chats/unread-count", cfg.Chats.UnreadCount)
		api.GET("/chats/:id/messages", cfg.Chats.GetMessages)
		api.POST("/chats/:id/messages", cfg.Chats.SendMessage)
		api.POST("/chats/:id/read", cfg.Chats.MarkAsRead)
	}

	// WebSocket endpoint authenticates during the handshake
	router.GET("/ws", cfg.WS.HandleWebSocket)

	return router
}
