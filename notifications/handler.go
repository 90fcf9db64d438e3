package notifications

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo      *Repository
	fcm       *FCMClient
	scheduler *Scheduler
}

func NewHandler(repo *Repository, fcm *FCMClient, scheduler *Scheduler) *Handler {
	return &Handler{repo: repo, fcm: fcm, scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/notification/send-notification", h.sendToToken)
	r.POST("/api/notification/send-to-topic", h.sendToTopic)
	r.POST("/api/notification/trigger-daily", h.triggerDaily)
	r.GET("/api/notification/timezones", h.listTimezones)
	r.POST("/api/notification/timezones", h.addTimezone)
}

type sendReq struct {
	Token    string            `json:"token"`
	Topic    string            `json:"topic"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data"`
	ImageURL string            `json:"imageUrl"`
}

func (h *Handler) sendToToken(c *gin.Context) {
	if h.fcm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push delivery is not configured"})
		return
	}
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	resp, err := h.fcm.SendToToken(c.Request.Context(), req.Token, req.Title, req.Body, req.Data, req.ImageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "response": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification sent", "response": resp})
}

func (h *Handler) sendToTopic(c *gin.Context) {
	if h.fcm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push delivery is not configured"})
		return
	}
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	resp, err := h.fcm.SendToTopic(c.Request.Context(), req.Topic, req.Title, req.Body, req.Data, req.ImageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "response": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification sent", "response": resp})
}

func (h *Handler) triggerDaily(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler is not running"})
		return
	}
	h.scheduler.TriggerNow()
	c.JSON(http.StatusOK, gin.H{"message": "daily fanout triggered"})
}

func (h *Handler) listTimezones(c *gin.Context) {
	zones, err := h.repo.ListTimezones(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "timezones": zones})
}

type timezoneReq struct {
	Timezone string `json:"timezone"`
}

func (h *Handler) addTimezone(c *gin.Context) {
	var req timezoneReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Timezone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timezone is required"})
		return
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timezone"})
		return
	}
	created, err := h.repo.AddTimezone(c.Request.Context(), req.Timezone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "timezone": req.Timezone, "created": created})
}
