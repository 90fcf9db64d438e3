package gameplay

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"gtd-backend/migrations"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repository
}

func NewHandler(r *Repository) *Handler { return &Handler{repo: r} }

// RegisterRoutes wires the gameplay endpoints. Gin's router rejects a
// static sibling of a path parameter, so /brief and /submit share the
// :id position and are dispatched on the segment value.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/gameplays", h.startOrGet)
	r.GET("/api/gameplays", h.list)
	r.GET("/api/gameplays/:id", h.getDispatch)
	r.POST("/api/gameplays/:id", h.postDispatch)
	r.POST("/api/gameplays/:id/:action", h.postActionDispatch)
	r.PATCH("/api/gameplays/:id/:action", h.patchDispatch)
}

func (h *Handler) getDispatch(c *gin.Context) {
	if c.Param("id") == "brief" {
		h.listBrief(c)
		return
	}
	h.get(c)
}

func (h *Handler) postDispatch(c *gin.Context) {
	if c.Param("id") == "submit" {
		h.submit(c, 0)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func (h *Handler) postActionDispatch(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid gameplay id required"})
		return
	}
	switch c.Param("action") {
	case "complete":
		h.complete(c, id)
	case "submit":
		h.submit(c, id)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}

func (h *Handler) patchDispatch(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid gameplay id required"})
		return
	}
	switch c.Param("action") {
	case "diagnosis":
		h.selection(c, id, "diagnosis")
	case "tests":
		h.selection(c, id, "test")
	case "treatment":
		h.selection(c, id, "treatment")
	case "reset":
		h.reset(c, id)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}

type startReq struct {
	UserID           int    `json:"userId"`
	CaseID           int    `json:"caseId"`
	DailyChallengeID int    `json:"dailyChallengeId"`
	SourceType       string `json:"sourceType"`
}

// resolveSource validates the start request and returns the source type
// plus reference id, writing the error response itself on failure.
func (h *Handler) resolveSource(c *gin.Context, req *startReq) (string, int, bool) {
	ctx := c.Request.Context()
	sourceType := req.SourceType
	if sourceType == "" {
		if req.DailyChallengeID > 0 {
			sourceType = SourceChallenge
		} else {
			sourceType = SourceCase
		}
	}
	if ok, err := h.repo.UserExists(ctx, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return "", 0, false
	} else if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return "", 0, false
	}
	switch sourceType {
	case SourceCase:
		if req.CaseID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "caseId is required for case gameplay"})
			return "", 0, false
		}
		if ok, err := h.repo.CaseExists(ctx, req.CaseID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return "", 0, false
		} else if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return "", 0, false
		}
		return SourceCase, req.CaseID, true
	case SourceChallenge:
		if req.DailyChallengeID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dailyChallengeId is required for daily challenge gameplay"})
			return "", 0, false
		}
		if ok, err := h.repo.ChallengeExists(ctx, req.DailyChallengeID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return "", 0, false
		} else if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "daily challenge not found"})
			return "", 0, false
		}
		return SourceChallenge, req.DailyChallengeID, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sourceType, must be 'case' or 'dailyChallenge'"})
		return "", 0, false
	}
}

func (h *Handler) startOrGet(c *gin.Context) {
	var req startReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	sourceType, refID, ok := h.resolveSource(c, &req)
	if !ok {
		return
	}
	g, err := h.repo.FindOrCreate(c.Request.Context(), req.UserID, sourceType, refID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "gameplay": g})
}

func (h *Handler) get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid gameplay id required"})
		return
	}
	g, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gameplay not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameplay": g})
}

func (h *Handler) list(c *gin.Context) {
	var f ListFilter
	f.UserID, _ = strconv.Atoi(c.Query("userId"))
	f.CaseID, _ = strconv.Atoi(c.Query("caseId"))
	f.DailyChallengeID, _ = strconv.Atoi(c.Query("dailyChallengeId"))
	f.SourceType = c.Query("sourceType")
	items, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameplays": items})
}

func (h *Handler) listBrief(c *gin.Context) {
	userID, _ := strconv.Atoi(c.Query("userId"))
	if userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	items, err := h.repo.ListBrief(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

type selectionReq struct {
	DiagnosisIndex *int `json:"diagnosisIndex"`
	TestIndex      *int `json:"testIndex"`
	TreatmentIndex *int `json:"treatmentIndex"`
	PointsDelta    *int `json:"pointsDelta"`
}

// selection applies one diagnosis, test or treatment pick with its point
// delta and appends a history entry.
func (h *Handler) selection(c *gin.Context, id int, kind string) {
	var req selectionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	var index *int
	switch kind {
	case "diagnosis":
		index = req.DiagnosisIndex
	case "test":
		index = req.TestIndex
	case "treatment":
		index = req.TreatmentIndex
	}
	if index == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": kind + " index (number) is required"})
		return
	}

	ctx := c.Request.Context()
	g, err := h.repo.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gameplay not found"})
		return
	}

	delta := 0
	if req.PointsDelta != nil {
		delta = *req.PointsDelta
	}
	switch kind {
	case "diagnosis":
		g.DiagnosisIndex = index
		g.Points.Diagnosis += delta
	case "test":
		g.TestIndices = append(g.TestIndices, *index)
		g.Points.Tests += delta
	case "treatment":
		g.TreatmentIndices = append(g.TreatmentIndices, *index)
		g.Points.Treatment += delta
	}
	g.Points.Recompute()
	g.History = append(g.History, HistoryEntry{Type: kind, Index: *index, DeltaPoints: delta, At: time.Now()})

	if err := h.repo.Save(ctx, g); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameplay": g})
}

type completeReq struct {
	PenaltiesDelta *int `json:"penaltiesDelta"`
}

func (h *Handler) complete(c *gin.Context, id int) {
	var req completeReq
	c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	g, err := h.repo.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gameplay not found"})
		return
	}

	wasCompleted := g.Status == StatusCompleted
	prevTotal := g.Points.Total
	if req.PenaltiesDelta != nil {
		g.Points.Penalties += *req.PenaltiesDelta
	}
	g.Points.Recompute()
	g.Status = StatusCompleted
	now := time.Now()
	g.CompletedAt = &now
	if err := h.repo.Save(ctx, g); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.settleCompletion(ctx, g, wasCompleted, prevTotal)
	c.JSON(http.StatusOK, gin.H{"success": true, "gameplay": g})
}

// settleCompletion propagates a completed gameplay into cumulative points,
// the global leaderboard and the per-date challenge leaderboard. Scoring
// side effects are best effort, the gameplay itself is already saved.
func (h *Handler) settleCompletion(ctx context.Context, g *Gameplay, wasCompleted bool, prevTotal int) {
	baseline := 0
	if wasCompleted {
		baseline = prevTotal
	}
	newTotal, err := migrations.AddCumulativePoints(g.UserID, g.Points.Total-baseline)
	if err != nil {
		log.Printf("[Gameplay][Complete] cumulative points update failed for user %d: %v", g.UserID, err)
		return
	}
	if err := h.repo.UpsertTopUser(ctx, g.UserID, newTotal); err != nil {
		log.Printf("[Gameplay][Complete] top_users upsert failed: %v", err)
	}
	if err := h.repo.RefreshTopFlags(ctx); err != nil {
		log.Printf("[Gameplay][Complete] in_top10 refresh failed: %v", err)
	}
	if err := h.repo.RecordCompletion(ctx, g); err != nil {
		log.Printf("[Gameplay][Complete] completion record failed: %v", err)
	}
	if g.SourceType == SourceChallenge && g.DailyChallengeID != nil {
		date, err := h.repo.ChallengeDate(ctx, *g.DailyChallengeID)
		if err != nil || date == "" {
			log.Printf("[Gameplay][Complete] challenge date lookup failed for %d: %v", *g.DailyChallengeID, err)
			return
		}
		completedAt := time.Now()
		if g.CompletedAt != nil {
			completedAt = *g.CompletedAt
		}
		if err := h.repo.UpsertChallengeScore(ctx, date, g.UserID, *g.DailyChallengeID, g.ID, g.Points.Total, completedAt); err != nil {
			log.Printf("[Gameplay][Complete] challenge leaderboard upsert failed: %v", err)
		}
	}
}

func (h *Handler) reset(c *gin.Context, id int) {
	ctx := c.Request.Context()
	g, err := h.repo.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gameplay not found"})
		return
	}
	g.DiagnosisIndex = nil
	g.TestIndices = []int{}
	g.TreatmentIndices = []int{}
	g.History = []HistoryEntry{}
	g.Points = Points{}
	g.Status = StatusInProgress
	g.StartedAt = time.Now()
	g.CompletedAt = nil
	if err := h.repo.Save(ctx, g); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameplay": g})
}

type submitReq struct {
	startReq
	DiagnosisIndex   *int    `json:"diagnosisIndex"`
	TestIndices      []int   `json:"testIndices"`
	TreatmentIndices []int   `json:"treatmentIndices"`
	PenaltiesDelta   *int    `json:"penaltiesDelta"`
	Complete         bool    `json:"complete"`
	Points           *Points `json:"points"`
}

// submit applies a batch of selections in one call and optionally completes
// the run. When no gameplay id is given the (userId, caseId or challenge)
// pair locates or creates one.
func (h *Handler) submit(c *gin.Context, id int) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	ctx := c.Request.Context()

	var g *Gameplay
	var err error
	if id > 0 {
		g, err = h.repo.Get(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if g == nil && req.UserID <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "gameplay not found, provide userId and caseId or dailyChallengeId to create one"})
			return
		}
	}
	if g == nil {
		if req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required when gameplay id is not provided"})
			return
		}
		sourceType, refID, ok := h.resolveSource(c, &req.startReq)
		if !ok {
			return
		}
		g, err = h.repo.FindOrCreate(ctx, req.UserID, sourceType, refID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	wasCompleted := g.Status == StatusCompleted
	prevTotal := g.Points.Total

	if req.DiagnosisIndex != nil {
		g.DiagnosisIndex = req.DiagnosisIndex
	}
	g.TestIndices = appendUnique(g.TestIndices, req.TestIndices)
	g.TreatmentIndices = appendUnique(g.TreatmentIndices, req.TreatmentIndices)
	if req.PenaltiesDelta != nil {
		g.Points.Penalties += *req.PenaltiesDelta
	}
	if req.Points != nil {
		// Client-side scoring is authoritative when supplied.
		g.Points = *req.Points
	} else {
		g.Points.Recompute()
	}
	if req.Complete {
		g.Status = StatusCompleted
		now := time.Now()
		g.CompletedAt = &now
	}
	if err := h.repo.Save(ctx, g); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var updatedUser gin.H
	if req.Complete {
		h.settleCompletion(ctx, g, wasCompleted, prevTotal)
		if u := migrations.GetUserByID(g.UserID); u != nil {
			casesDone, challengesDone, err := h.repo.CompletionCounts(ctx, g.UserID)
			if err != nil {
				log.Printf("[Gameplay][Submit] completion counts failed: %v", err)
			}
			updatedUser = gin.H{
				"cumulativePoints":              gin.H{"total": u.CumulativePoints},
				"completedCasesCount":           casesDone,
				"completedDailyChallengesCount": challengesDone,
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameplay": g, "updatedUser": updatedUser})
}

func appendUnique(dst, src []int) []int {
	for _, v := range src {
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}
