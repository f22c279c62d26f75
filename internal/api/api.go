package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/depot-replenishment/internal/api/handlers"
	"github.com/andresuchdata/depot-replenishment/internal/api/middleware"
	"github.com/andresuchdata/depot-replenishment/internal/service"
)

type Services struct {
	Replenishment *service.ReplenishmentService
}

type RouterOptions struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

func NewRouter(services *Services, opts RouterOptions) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", handlers.ExportObjectHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(opts.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", health)

	apiGroup := router.Group("/api/v1")
	apiGroup.GET("/health", health)

	if services != nil && services.Replenishment != nil {
		h := handlers.NewReplenishmentHandler(services.Replenishment)

		sessions := apiGroup.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.DELETE("/:id", h.DeleteSession)

			uploads := sessions.Group("/:id", middleware.BodyLimit(opts.MaxUploadBytes))
			{
				uploads.POST("/orders", h.UploadOrders)
				uploads.POST("/inventory", h.UploadInventory)
				uploads.POST("/transit", h.UploadTransit)
			}

			sessions.GET("/:id/options", h.Options)
			sessions.POST("/:id/calculate", h.Calculate)
			sessions.GET("/:id/results", h.Result)
			sessions.POST("/:id/palettes", h.SetPalettes)
			sessions.GET("/:id/palettes", h.GetPalettes)
			sessions.GET("/:id/depots/:depot/suggestions", h.DepotSuggestions)
			sessions.POST("/:id/export", h.Export)
			sessions.POST("/:id/ask", h.Ask)
		}

		configuration := apiGroup.Group("/configuration")
		{
			configuration.GET("/depot-articles", h.GetDepotArticles)
			configuration.POST("/depot-articles", h.SaveDepotArticles)
			configuration.GET("/sourcing", h.GetSourcing)
			configuration.PUT("/sourcing", h.SaveSourcing)
		}
	}

	return router
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
