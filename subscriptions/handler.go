package subscriptions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	stripe *StripeService
}

func NewHandler(stripe *StripeService) *Handler { return &Handler{stripe: stripe} }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/subscriptions/plans", h.listPlans)
	r.POST("/api/subscriptions/checkout", h.checkout)
	r.GET("/api/subscriptions/confirm", h.confirm)
	r.POST("/api/subscriptions/stripe-webhook", h.stripeWebhook)
	r.POST("/api/webhook/revenuecat", RevenueCatWebhook)
}

func (h *Handler) listPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "plans": plans})
}

type checkoutReq struct {
	UserID int    `json:"userId"`
	PlanID string `json:"planId"`
}

func (h *Handler) checkout(c *gin.Context) {
	if h.stripe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "web checkout is not configured"})
		return
	}
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 || req.PlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and planId are required"})
		return
	}
	url, sessionID, err := h.stripe.CreateCheckoutSession(c.Request.Context(), req.UserID, req.PlanID)
	if err != nil {
		if errors.Is(err, ErrStripeInvalidAPIKey) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url, "sessionId": sessionID})
}

func (h *Handler) confirm(c *gin.Context) {
	if h.stripe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "web checkout is not configured"})
		return
	}
	activated, err := h.stripe.ConfirmSession(c.Query("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activated": activated})
}

func (h *Handler) stripeWebhook(c *gin.Context) {
	if h.stripe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "web checkout is not configured"})
		return
	}
	if err := h.stripe.HandleWebhook(c.Writer, c.Request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
