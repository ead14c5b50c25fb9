package api

import (
	"net/http"
	"time"

	"github.com/OnellHernandez/studio/internal/api/handlers"
	"github.com/OnellHernandez/studio/internal/api/middleware"
	"github.com/OnellHernandez/studio/internal/computer"
	"github.com/OnellHernandez/studio/internal/config"
	"github.com/OnellHernandez/studio/internal/crypto"
	"github.com/OnellHernandez/studio/internal/events"
	"github.com/OnellHernandez/studio/internal/logs"
	"github.com/OnellHernandez/studio/internal/stats"
	"github.com/OnellHernandez/studio/internal/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ServiceName 健康检查返回的服务名
const ServiceName = "inventory"

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, cfg *config.Config, obfuscator *crypto.Obfuscator, broker *events.Broker) *gin.Engine {
	counter := stats.NewRequestCounter(stats.DefaultWindow)

	// 创建 Gin 引擎
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logs.Logger),
		middleware.RequestCounterMiddleware(counter),
		middleware.Recovery(logs.Logger),
	)

	if len(cfg.Server.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	}

	// 健康检查端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"service":  ServiceName,
			"requests": counter.GetStats(),
		})
	})

	userService := user.NewService(user.NewRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authRequired := middleware.AuthMiddleware(userService)

	// API 路由组
	apiGroup := router.Group("/api")
	{
		setupAuthRoutes(apiGroup, userService, authRequired)
		setupComputerRoutes(apiGroup, db, obfuscator, broker, authRequired)
	}

	return router
}

// setupAuthRoutes 配置认证路由
func setupAuthRoutes(group *gin.RouterGroup, service *user.Service, authRequired gin.HandlerFunc) {
	handler := handlers.NewAuthHandler(service)

	auth := group.Group("/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.GET("/me", authRequired, handler.Me)
	}
}

// setupComputerRoutes 配置计算机记录路由
func setupComputerRoutes(group *gin.RouterGroup, db *gorm.DB, obfuscator *crypto.Obfuscator, broker *events.Broker, authRequired gin.HandlerFunc) {
	service := computer.NewService(computer.NewRepository(db), obfuscator, broker)
	handler := handlers.NewComputerHandler(service, broker)

	group.POST("/compatibility/evaluate", authRequired, handler.Evaluate)

	computers := group.Group("/computers", authRequired)
	{
		computers.POST("", handler.CreateComputer)
		computers.GET("", handler.ListComputers)
		computers.GET("/summary", handler.GetSummary)
		computers.GET("/stream", handler.StreamComputers)
		computers.GET("/:id", handler.GetComputer)
		computers.PUT("/:id", handler.UpdateComputer)
		computers.DELETE("/:id", handler.DeleteComputer)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
