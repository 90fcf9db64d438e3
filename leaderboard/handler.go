package leaderboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repository
}

func NewHandler(r *Repository) *Handler { return &Handler{repo: r} }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/leaderboard/top10", h.topTen)
	r.GET("/api/leaderboard/position/:userId", h.position)
}

func (h *Handler) topTen(c *gin.Context) {
	ctx := c.Request.Context()
	top, err := h.repo.TopTen(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var me *Standing
	if userID, _ := strconv.Atoi(c.Query("userId")); userID > 0 {
		me, err = h.repo.Position(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "top10": top, "me": me})
}

func (h *Handler) position(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	s, err := h.repo.Position(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": s})
}
