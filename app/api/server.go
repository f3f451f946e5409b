// Package api exposes the HTTP surface: aggregation triggers, progress
// polling, report retrieval and source/topic management.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liuhaoran/daybrief/app/cfg"
)

// NewServer creates the HTTP engine with all routes configured.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/", handler.GetInfo)
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled, no access key configured")
	}

	api.POST("/aggregate", handler.TriggerAggregation)
	api.GET("/aggregate/progress", handler.GetProgress)

	api.GET("/reports", handler.ListReports)
	api.GET("/reports/:date", handler.GetReport)
	api.GET("/reports/:date/read", handler.GetReadItems)
	api.POST("/reports/:date/read/:itemId", handler.MarkItemRead)
	api.DELETE("/reports/:date/read/:itemId", handler.UnmarkItemRead)

	api.GET("/sources", handler.ListSources)
	api.POST("/sources", handler.AddSource)
	api.DELETE("/sources", handler.RemoveSource)

	api.GET("/topics", handler.ListTopics)
	api.POST("/topics", handler.UpsertTopic)
	api.DELETE("/topics/:id", handler.RemoveTopic)

	api.GET("/fetch-log", handler.GetFetchLog)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Version is surfaced on the info and health endpoints.
func version() string {
	return cfg.GetVersion()
}
