package quizzes

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gtd-backend/files"

	"github.com/gin-gonic/gin"
)

// departmentMapping resolves short department names used in bulk uploads
// to full category names.
var departmentMapping = map[string]string{
	"tox":    "toxicology",
	"rheum":  "rheumatology",
	"hem":    "hematology",
	"onc":    "oncology",
	"id":     "infectious disease",
	"neuro":  "neurology",
	"nepho":  "nephrology",
	"gastro": "gastroenterology",
	"pulmo":  "pulmonology",
	"ortho":  "orthopedics",
	"ent":    "otolaryngology (ent)",
	"ophth":  "ophthalmology",
	"endo":   "endocrinology",
	"obgyn":  "obstetrics & gynecology (ob/gyn)",
	"psych":  "psychiatry",
	"cardio": "cardiology",
	"derm":   "dermatology",
	"em":     "emergency medicine",
	"peds":   "pediatrics",
	"gen":    "genetics",
}

// resolveDepartment expands a short department name and reports the full form.
func resolveDepartment(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if full, ok := departmentMapping[n]; ok {
		return full
	}
	return n
}

// Extractor structures free text into quiz items.
type Extractor interface {
	ExtractQuizItems(ctx context.Context, text string, count int) (string, error)
}

type Handler struct {
	repo *Repository
	ai   Extractor
}

func NewHandler(r *Repository, ai Extractor) *Handler { return &Handler{repo: r, ai: ai} }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/quizz/bulk", h.bulkUpload)
	r.POST("/api/quizz/attempt", h.attempt)
	r.GET("/api/quizz", h.list)
	r.POST("/api/quizz/category/bulk", h.bulkCategories)
	r.GET("/api/quizz/category", h.listCategories)
	r.POST("/api/quizz/import-pdf", h.importPDF)
}

type bulkCategoriesReq struct {
	Categories []string `json:"categories"`
}

func (h *Handler) bulkCategories(c *gin.Context) {
	var req bulkCategoriesReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Categories) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "provide an array of categories"})
		return
	}
	names := make([]string, 0, len(req.Categories))
	for _, n := range req.Categories {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			names = append(names, n)
		}
	}
	created, err := h.repo.BulkCreateCategories(c.Request.Context(), names)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "count": created})
}

func (h *Handler) listCategories(c *gin.Context) {
	userID, _ := strconv.Atoi(c.Query("userId"))
	items, err := h.repo.ListCategories(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

type quizUpload struct {
	CaseTitle          string          `json:"case_title"`
	ClinicalImages     json.RawMessage `json:"clinicalImages"`
	Complain           string          `json:"complain"`
	Options            []string        `json:"options"`
	CorrectOptionIndex int             `json:"correctOptionIndex"`
	Department         string          `json:"department"`
	Category           string          `json:"category"`
	Explain            json.RawMessage `json:"explain"`
}

type bulkQuizReq struct {
	Quizzes []quizUpload `json:"quizzes"`
}

func (h *Handler) bulkUpload(c *gin.Context) {
	var req bulkQuizReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Quizzes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "provide an array of quizzes"})
		return
	}
	ctx := c.Request.Context()
	created, err := h.insertQuizzes(ctx, req.Quizzes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "count": len(created), "data": created})
}

// insertQuizzes resolves department names to categories and stores the
// quizzes, then refreshes per-category counts.
func (h *Handler) insertQuizzes(ctx context.Context, uploads []quizUpload) ([]Quiz, error) {
	categoryIDs := map[string]int{}
	created := make([]Quiz, 0, len(uploads))
	for _, u := range uploads {
		name := u.Department
		if name == "" {
			name = u.Category
		}
		department := resolveDepartment(name)

		var categoryID *int
		if department != "" {
			id, ok := categoryIDs[department]
			if !ok {
				var err error
				id, err = h.repo.CategoryIDByName(ctx, department)
				if err != nil {
					return nil, err
				}
				categoryIDs[department] = id
			}
			if id > 0 {
				categoryID = &id
			}
		}

		q := Quiz{
			CategoryID:         categoryID,
			CaseTitle:          u.CaseTitle,
			ClinicalImages:     u.ClinicalImages,
			Complain:           u.Complain,
			Options:            u.Options,
			CorrectOptionIndex: u.CorrectOptionIndex,
			Department:         department,
			Explain:            u.Explain,
		}
		id, err := h.repo.InsertQuiz(ctx, &q)
		if err != nil {
			return nil, err
		}
		q.ID = id
		created = append(created, q)
	}
	if err := h.repo.SyncQuizCounts(ctx); err != nil {
		log.Printf("[Quizz][Bulk] quiz count sync failed: %v", err)
	}
	return created, nil
}

func (h *Handler) list(c *gin.Context) {
	var f ListFilter
	if cat := c.Query("category"); cat != "" && cat != "null" {
		f.CategoryID, _ = strconv.Atoi(cat)
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	f.UserID, _ = strconv.Atoi(c.Query("userId"))
	f.ExcludeAttempted = c.Query("excludeAttempted") == "true"

	items, total, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(items),
		"total":   total,
		"page":    f.Page,
		"hasMore": (f.Page-1)*f.Limit+len(items) < total,
		"data":    items,
	})
}

type attemptReq struct {
	UserID         int  `json:"userId"`
	QuizID         int  `json:"quizzId"`
	SelectedOption *int `json:"selectedOption"`
	IsCorrect      bool `json:"isCorrect"`
}

func (h *Handler) attempt(c *gin.Context) {
	var req attemptReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 || req.QuizID <= 0 || req.SelectedOption == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "missing required fields"})
		return
	}
	ctx := c.Request.Context()
	exists, err := h.repo.QuizExists(ctx, req.QuizID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "quiz not found"})
		return
	}
	attempt, err := h.repo.UpsertAttempt(ctx, req.UserID, req.QuizID, *req.SelectedOption, req.IsCorrect)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": attempt})
}

type extractedQuiz struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// importPDF extracts text from an uploaded PDF, asks the model to build
// multiple-choice questions from it and stores them under the given
// department.
func (h *Handler) importPDF(c *gin.Context) {
	if h.ai == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "quiz extraction unavailable"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "pdf file is required"})
		return
	}
	count, _ := strconv.Atoi(c.DefaultPostForm("count", "10"))
	department := resolveDepartment(c.PostForm("department"))

	tmp := filepath.Join(os.TempDir(), "quiz-import-"+strconv.FormatInt(time.Now().UnixNano(), 10)+".pdf")
	if err := c.SaveUploadedFile(file, tmp); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.Remove(tmp)

	text, err := files.ExtractPDFText(tmp, 0)
	if err != nil || strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "could not extract text from pdf"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 90*time.Second)
	defer cancel()
	raw, err := h.ai.ExtractQuizItems(ctx, text, count)
	if err != nil {
		log.Printf("[Quizz][ImportPDF] extraction failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "quiz extraction failed"})
		return
	}

	var extracted []extractedQuiz
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &extracted); err != nil || len(extracted) == 0 {
		log.Printf("[Quizz][ImportPDF] unparseable extraction output: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "quiz extraction returned no usable questions"})
		return
	}

	uploads := make([]quizUpload, 0, len(extracted))
	for _, e := range extracted {
		if e.Question == "" || len(e.Options) < 2 {
			continue
		}
		if e.CorrectAnswerIndex < 0 || e.CorrectAnswerIndex >= len(e.Options) {
			continue
		}
		var explain json.RawMessage
		if e.Explanation != "" {
			explain, _ = json.Marshal(gin.H{"text": e.Explanation})
		}
		uploads = append(uploads, quizUpload{
			CaseTitle:          e.Question,
			Options:            e.Options,
			CorrectOptionIndex: e.CorrectAnswerIndex,
			Department:         department,
			Explain:            explain,
		})
	}
	if len(uploads) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "quiz extraction returned no usable questions"})
		return
	}

	created, err := h.insertQuizzes(c.Request.Context(), uploads)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "count": len(created), "data": created, "source": file.Filename})
}

// extractJSONArray trims any prose around a JSON array in model output.
func extractJSONArray(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		candidate := raw[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return raw
}
