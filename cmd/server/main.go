package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concierge/internal/app"
	"concierge/internal/config"
	"concierge/internal/handler"
	"concierge/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = appLog.Sync() }()

	appLog.Info("Starting property concierge", map[string]interface{}{
		"version":   Version,
		"buildTime": BuildTime,
		"gitCommit": GitCommit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.WithError(err).Error("Failed to initialize", nil)
		os.Exit(1)
	}
	defer a.Close()

	gin.SetMode(cfg.Server.GinMode)
	router := newRouter(a)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("Starting server", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Error("Server stopped unexpectedly", nil)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	appLog.Info("Shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("Graceful shutdown incomplete", nil)
	}
	appLog.Info("Server stopped", nil)
}

func newRouter(a *app.App) *gin.Engine {
	cfg := a.Config

	router := gin.New()
	router.Use(handler.RequestID(), handler.RequestLogger(a.Log), handler.Recovery(a.Log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", handler.RequestIDHeader, handler.AdminTokenHeader}
	corsConfig.ExposeHeaders = []string{handler.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	chatHandler := handler.NewChatHandler(a.Chat, cfg.Chat.MaxMessageLength, a.Log)
	searchHandler := handler.NewSearchHandler(a.Search, cfg.Catalog.MaxLimit, a.Log)
	adminHandler := handler.NewAdminHandler(a.Indexer, a.Log)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := a.Repo.Ping(pingCtx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    "property-concierge",
			"llm":        a.LLM.IsEnabled(),
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.Chat)
		apiV1.POST("/chat/stream", chatHandler.ChatStream)
		apiV1.POST("/search/semantic", searchHandler.SemanticSearch)

		admin := apiV1.Group("/admin", handler.RequireAdminToken(cfg.Admin.Token))
		admin.POST("/reindex", adminHandler.Reindex)
		admin.POST("/vector-index", adminHandler.ProvisionIndex)
	}

	return router
}
