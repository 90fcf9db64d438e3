package users

import (
	"net/http"
	"strconv"
	"strings"

	"gtd-backend/migrations"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repository
}

func NewHandler(r *Repository) *Handler { return &Handler{repo: r} }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/users/:userId/next-cases", h.nextCases)
	r.GET("/api/users/:userId/progress/department", h.departmentProgress)
	r.POST("/api/users/:userId/fcm-token", h.registerFCMToken)
	r.GET("/api/users/:userId/premium", h.premiumStatus)
	r.GET("/api/users/:userId/stats", h.stats)
	r.POST("/api/referral/apply", h.applyReferral)
}

func userIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid userId is required"})
		return 0, false
	}
	return id, true
}

func (h *Handler) nextCases(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if migrations.GetUserByID(userID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	items, err := h.repo.NextCasesPerCategory(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	result := make([]gin.H, 0, len(items))
	for _, it := range items {
		result = append(result, gin.H{
			"categoryId":   it.CategoryID,
			"categoryName": it.CategoryName,
			"case":         gin.H{"id": it.CaseID, "caseData": it.CaseData},
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "nextByDepartment": result})
}

func (h *Handler) departmentProgress(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "2"))
	if limit < 1 {
		limit = 1
	}
	if limit > 5 {
		limit = 5
	}
	departments, err := h.repo.DepartmentProgressFor(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "departments": departments})
}

type fcmTokenReq struct {
	Token string `json:"token"`
}

func (h *Handler) registerFCMToken(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	var req fcmTokenReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	if migrations.GetUserByID(userID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err := migrations.UpdateFCMToken(userID, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) premiumStatus(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	u := migrations.GetUserByID(userID)
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"isPremium":        u.IsPremium,
		"premiumPlan":      u.PremiumPlan,
		"premiumExpiresAt": u.PremiumExpiresAt,
	})
}

// stats aggregates the user's quiz history and gameplay points.
func (h *Handler) stats(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if migrations.GetUserByID(userID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}
	quiz, err := migrations.QuizStats(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	monthly, err := migrations.MonthlyPoints(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	topCategory, err := migrations.MostPlayedCategory(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"quiz":          quiz,
		"monthlyPoints": monthly,
		"topCategory":   topCategory,
	})
}

type referralReq struct {
	ReferralCode string `json:"referralCode"`
	UserID       int    `json:"userId"`
}

// applyReferral credits the code's owner with one heart. Users cannot
// redeem their own code.
func (h *Handler) applyReferral(c *gin.Context) {
	var req referralReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ReferralCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "referral code required"})
		return
	}
	referrer := migrations.GetUserByReferralCode(strings.ToUpper(req.ReferralCode))
	if referrer == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "invalid referral code"})
		return
	}
	if req.UserID > 0 && referrer.ID == req.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "cannot use your own code"})
		return
	}
	if err := migrations.AddHearts(referrer.ID, 1); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "referral applied, your friend earned a heart"})
}
