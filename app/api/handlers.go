package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liuhaoran/daybrief/app/aggregate"
	"github.com/liuhaoran/daybrief/app/database"
	"github.com/liuhaoran/daybrief/app/news"
)

func NewHandler(aggregator AggregatorInterface, reports ReportStoreInterface,
	sources SourceStoreInterface, topics TopicStoreInterface,
	tracker ProgressInterface, readRepo *database.ReadStatusRepository,
	fetchLog *database.FetchLogRepository) *Handler {
	return &Handler{
		aggregator: aggregator,
		reports:    reports,
		sources:    sources,
		topics:     topics,
		tracker:    tracker,
		readRepo:   readRepo,
		fetchLog:   fetchLog,
	}
}

func (h *Handler) GetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "daybrief",
		"version": version(),
		"endpoints": gin.H{
			"aggregate": "/api/aggregate (POST)",
			"progress":  "/api/aggregate/progress",
			"reports":   "/api/reports, /api/reports/<date>",
			"sources":   "/api/sources",
			"topics":    "/api/topics",
			"health":    "/health",
			"stats":     "/stats",
		},
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   version(),
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if dates, err := h.reports.List(); err == nil {
		health["reports"] = len(dates)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{}

	if sources, err := h.sources.Load(); err == nil {
		stats["sources"] = len(sources)
	}
	if topics, err := h.topics.Load(); err == nil {
		stats["topics"] = len(topics)
	}
	if dates, err := h.reports.List(); err == nil {
		stats["reports"] = len(dates)
		if len(dates) > 0 {
			stats["latest_report"] = dates[0]
		}
	}
	if h.fetchLog != nil {
		if total, failed, err := h.fetchLog.AttemptStats(time.Now().Add(-24 * time.Hour)); err == nil {
			stats["fetch_attempts_24h"] = total
			stats["fetch_failures_24h"] = failed
		}
	}

	c.JSON(http.StatusOK, stats)
}

type aggregateRequest struct {
	Date string `json:"date"`
}

// TriggerAggregation starts a pipeline run in the background and
// returns immediately. Progress is polled separately.
func (h *Handler) TriggerAggregation(c *gin.Context) {
	var req aggregateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	go func(date string) {
		// Detached from the request: the run outlives the HTTP call.
		if _, err := h.aggregator.Run(context.Background(), date); err != nil {
			if !errors.Is(err, aggregate.ErrAlreadyRunning) {
				slog.Error("Background aggregation failed", "date", date, "error", err)
			}
		}
	}(req.Date)

	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"date":   req.Date,
	})
}

func (h *Handler) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Snapshot())
}

func (h *Handler) ListReports(c *gin.Context) {
	dates, err := h.reports.List()
	if err != nil {
		slog.Error("Failed to list reports", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

func (h *Handler) GetReport(c *gin.Context) {
	date := c.Param("date")

	report, err := h.reports.Load(date)
	if err != nil {
		slog.Error("Failed to load report", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found", "date": date})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetReadItems(c *gin.Context) {
	ids, err := h.readRepo.GetAll(c.Param("date"))
	if err != nil {
		slog.Error("Failed to load read status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load read status"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"read": ids})
}

func (h *Handler) MarkItemRead(c *gin.Context) {
	if err := h.readRepo.Mark(c.Param("date"), c.Param("itemId")); err != nil {
		slog.Error("Failed to mark item read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark item read"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UnmarkItemRead(c *gin.Context) {
	if err := h.readRepo.Unmark(c.Param("date"), c.Param("itemId")); err != nil {
		slog.Error("Failed to unmark item read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unmark item read"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sources.Load()
	if err != nil {
		slog.Error("Failed to load sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sources"})
		return
	}
	if sources == nil {
		sources = []news.Source{}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (h *Handler) AddSource(c *gin.Context) {
	var source news.Source
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if source.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	if err := h.sources.Add(source); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, source)
}

type removeSourceRequest struct {
	URL string `json:"url"`
}

func (h *Handler) RemoveSource(c *gin.Context) {
	var req removeSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	if err := h.sources.Remove(req.URL); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.topics.Load()
	if err != nil {
		slog.Error("Failed to load topics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load topics"})
		return
	}
	if topics == nil {
		topics = []news.Topic{}
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (h *Handler) UpsertTopic(c *gin.Context) {
	var topic news.Topic
	if err := c.ShouldBindJSON(&topic); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if topic.ID == "" || topic.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and name are required"})
		return
	}

	if err := h.topics.Upsert(topic); err != nil {
		slog.Error("Failed to save topic", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save topic"})
		return
	}

	c.JSON(http.StatusOK, topic)
}

func (h *Handler) RemoveTopic(c *gin.Context) {
	if err := h.topics.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetFetchLog(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	attempts, err := h.fetchLog.RecentAttempts(limit)
	if err != nil {
		slog.Error("Failed to load fetch log", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load fetch log"})
		return
	}
	if attempts == nil {
		attempts = []database.FetchAttempt{}
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}
