package dailychallenge

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repository
}

func NewHandler(r *Repository) *Handler { return &Handler{repo: r} }

// RegisterRoutes wires the challenge endpoints. Gin's router rejects a
// static sibling of a path parameter, so "today", "populate" and
// "leaderboard" travel through the :date position and are dispatched on
// the segment value.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/daily-challenge", h.list)
	r.POST("/api/daily-challenge", h.create)
	r.GET("/api/daily-challenge/:date", h.getDispatch)
	r.GET("/api/daily-challenge/:date/:sub", h.getSubDispatch)
	r.POST("/api/daily-challenge/:date", h.postDispatch)
	r.PUT("/api/daily-challenge/:date", h.update)
	r.DELETE("/api/daily-challenge/:date", h.remove)
}

func (h *Handler) userTimezone(c *gin.Context) string {
	tz := c.Query("timezone")
	if tz == "" {
		tz = c.GetHeader("User-Timezone")
	}
	if tz == "" {
		tz = "UTC"
	}
	return tz
}

func (h *Handler) getDispatch(c *gin.Context) {
	if c.Param("date") == "today" {
		h.today(c)
		return
	}
	h.byDate(c)
}

func (h *Handler) getSubDispatch(c *gin.Context) {
	if c.Param("date") == "leaderboard" {
		h.leaderboard(c, c.Param("sub"))
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func (h *Handler) postDispatch(c *gin.Context) {
	if c.Param("date") == "populate" {
		h.populate(c)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func (h *Handler) today(c *gin.Context) {
	tz := h.userTimezone(c)
	date := todayIn(tz, time.Now())
	ch, err := h.repo.ByDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success":  false,
			"message":  "no daily challenge available for today",
			"date":     date,
			"timezone": tz,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "challenge": ch, "userDate": date, "timezone": tz})
}

func (h *Handler) byDate(c *gin.Context) {
	date := c.Param("date")
	tz := h.userTimezone(c)
	if !validDateFormat(date) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid date format, use YYYY-MM-DD"})
		return
	}
	if err := checkDateWindow(date, tz, time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":       false,
			"message":       err.Error(),
			"requestedDate": date,
			"timezone":      tz,
		})
		return
	}
	ch, err := h.repo.ByDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success":  false,
			"message":  "no daily challenge available for date: " + date,
			"date":     date,
			"timezone": tz,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "challenge": ch, "requestedDate": date, "timezone": tz})
}

type createReq struct {
	Date     string          `json:"date"`
	CaseData json.RawMessage `json:"caseData"`
	Metadata *Metadata       `json:"metadata"`
}

func defaultMetadata() Metadata {
	return Metadata{Difficulty: "medium", Category: "general", Title: "Daily Challenge"}
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Date == "" || len(req.CaseData) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "date and caseData are required"})
		return
	}
	if !validDateFormat(req.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid date format, use YYYY-MM-DD"})
		return
	}
	ctx := c.Request.Context()
	if existing, err := h.repo.ByDate(ctx, req.Date); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "daily challenge already exists for date: " + req.Date})
		return
	}
	meta := defaultMetadata()
	if req.Metadata != nil {
		meta = *req.Metadata
	}
	ch, err := h.repo.Create(ctx, req.Date, req.CaseData, meta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "daily challenge created", "challenge": ch})
}

func (h *Handler) update(c *gin.Context) {
	date := c.Param("date")
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid body"})
		return
	}
	var data []byte
	if len(req.CaseData) > 0 {
		data = req.CaseData
	}
	ch, err := h.repo.Update(c.Request.Context(), date, data, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no daily challenge found for date: " + date})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "daily challenge updated", "challenge": ch})
}

func (h *Handler) remove(c *gin.Context) {
	date := c.Param("date")
	ch, err := h.repo.Delete(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no daily challenge found for date: " + date})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          "daily challenge deleted",
		"deletedChallenge": gin.H{"id": ch.ID, "date": ch.Date},
	})
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if limit <= 0 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}
	items, total, err := h.repo.List(c.Request.Context(), limit, skip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"challenges": items,
		"pagination": gin.H{
			"total":   total,
			"limit":   limit,
			"skip":    skip,
			"hasMore": skip+limit < total,
		},
	})
}

// populate bulk-loads challenges from a local JSON file of dated cases.
func (h *Handler) populate(c *gin.Context) {
	path := os.Getenv("CASES_FILE")
	if path == "" {
		path = "case.json"
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "cases file not found or unreadable"})
		return
	}
	var items []struct {
		Date string          `json:"date"`
		Case json.RawMessage `json:"case"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "cases file has invalid format"})
		return
	}

	ctx := c.Request.Context()
	created := make([]gin.H, 0)
	errors := make([]gin.H, 0)
	for i, item := range items {
		if item.Date == "" || len(item.Case) == 0 {
			errors = append(errors, gin.H{"index": i, "error": "missing date or case data"})
			continue
		}
		existing, err := h.repo.ByDate(ctx, item.Date)
		if err != nil {
			errors = append(errors, gin.H{"index": i, "error": err.Error()})
			continue
		}
		if existing != nil {
			errors = append(errors, gin.H{"date": item.Date, "error": "challenge already exists for this date"})
			continue
		}

		var caseInfo struct {
			CaseID       string `json:"caseId"`
			CaseTitle    string `json:"caseTitle"`
			CaseCategory string `json:"caseCategory"`
		}
		json.Unmarshal(item.Case, &caseInfo)
		title := caseInfo.CaseTitle
		if title == "" {
			title = "Daily Challenge - " + caseInfo.CaseID
		}
		meta := Metadata{
			Difficulty:  "medium",
			Category:    strings.ToLower(caseInfo.CaseCategory),
			Title:       title,
			Description: "Solve today's case: " + title,
		}
		if _, err := h.repo.Create(ctx, item.Date, item.Case, meta); err != nil {
			errors = append(errors, gin.H{"date": item.Date, "error": err.Error()})
			continue
		}
		created = append(created, gin.H{"date": item.Date, "caseId": caseInfo.CaseID, "title": title})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"created": created,
		"errors":  errors,
		"summary": gin.H{
			"totalCases": len(items),
			"created":    len(created),
			"errors":     len(errors),
		},
	})
}

// leaderboard serves the standings for "today" or an explicit date.
func (h *Handler) leaderboard(c *gin.Context, date string) {
	tz := h.userTimezone(c)
	if date == "today" {
		date = todayIn(tz, time.Now())
	} else if !validDateFormat(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	ctx := c.Request.Context()
	ch, err := h.repo.ByDate(ctx, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no daily challenge found for this date", "date": date})
		return
	}

	top, err := h.repo.TopForDate(ctx, date, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := h.repo.ParticipantCount(ctx, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var me *BoardEntry
	if userID, _ := strconv.Atoi(c.Query("userId")); userID > 0 {
		me, err = h.repo.UserRank(ctx, date, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"date":              date,
		"challengeId":       ch.ID,
		"challengeTitle":    ch.Metadata.Title,
		"category":          ch.Metadata.Category,
		"top10":             top,
		"me":                me,
		"totalParticipants": total,
	})
}
