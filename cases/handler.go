package cases

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repository
}

func NewHandler(r *Repository) *Handler { return &Handler{repo: r} }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/cases/bulk", h.bulkUpload)
	r.GET("/api/cases/:id", h.getCase)
	r.POST("/api/categories", h.createCategories)
	r.GET("/api/categories", h.listCategories)
	r.POST("/api/categories/:categoryId/cases", h.linkCase)
}

type bulkEnvelope struct {
	Cases []map[string]any `json:"cases"`
}

// bulkUpload accepts a JSON array of case payloads, or an object wrapping
// the array under "cases". Category names are normalized and created on
// the fly; cases carrying a caseId are deduplicated against it.
func (h *Handler) bulkUpload(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		var env bulkEnvelope
		if err := json.Unmarshal(body, &env); err != nil || len(env.Cases) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide an array of cases in the request body or under 'cases'"})
			return
		}
		items = env.Cases
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide an array of cases in the request body or under 'cases'"})
		return
	}

	ctx := c.Request.Context()
	createdCategories := 0
	createdCases := 0
	updatedCases := 0
	linked := 0
	results := make([]gin.H, 0, len(items))
	categoryIDs := map[string]int{}

	for _, item := range items {
		if item == nil {
			continue
		}
		categoryName := NormalizeName(stringField(item, "caseCategory"))
		var categoryID *int
		if categoryName != "" {
			id, ok := categoryIDs[categoryName]
			if !ok {
				var created bool
				id, created, err = h.repo.EnsureCategory(ctx, categoryName)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				if created {
					createdCategories++
				}
				categoryIDs[categoryName] = id
			}
			categoryID = &id
			linked++
		}

		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		title := stringField(item, "title")
		if title == "" {
			title = stringField(item, "caseTitle")
		}

		var rowID int
		businessID := strings.TrimSpace(stringField(item, "caseId"))
		if businessID != "" {
			existingID, found, err := h.repo.FindByBusinessID(ctx, businessID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if found {
				if err := h.repo.UpdateCase(ctx, existingID, categoryID, title, data); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				rowID = existingID
				updatedCases++
			}
		}
		if rowID == 0 {
			rowID, err = h.repo.InsertCase(ctx, categoryID, title, data)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			createdCases++
		}
		results = append(results, gin.H{"caseId": businessID, "category": categoryName, "id": rowID})
	}

	if err := h.repo.SyncCaseCounts(ctx); err != nil {
		log.Printf("[Cases][Bulk] case count sync failed: %v", err)
	}

	status := http.StatusOK
	if createdCases > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success": true,
		"summary": gin.H{
			"createdCategories": createdCategories,
			"createdCases":      createdCases,
			"updatedCases":      updatedCases,
			"linked":            linked,
		},
		"results": results,
	})
}

func (h *Handler) getCase(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid case id required"})
		return
	}
	doc, err := h.repo.GetCase(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "case": doc})
}

type createCategoryReq struct {
	Name         string `json:"name"`
	Taxonomy     string `json:"taxonomy"`
	TaxonomyCode string `json:"taxonomyCode"`
	Names        []any  `json:"names"`
}

// createCategories handles both single and bulk category creation.
func (h *Handler) createCategories(c *gin.Context) {
	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	ctx := c.Request.Context()

	if len(req.Names) > 0 {
		created := make([]Category, 0)
		skipped := make([]string, 0)
		seen := map[string]bool{}
		for _, raw := range req.Names {
			name, taxonomy := "", ""
			switch v := raw.(type) {
			case string:
				name = v
			case map[string]any:
				name = stringField(v, "name")
				taxonomy = stringField(v, "taxonomy")
				if taxonomy == "" {
					taxonomy = stringField(v, "taxonomyCode")
				}
			}
			name = NormalizeName(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			cat, err := h.repo.CreateCategory(ctx, name, taxonomy)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if cat == nil {
				skipped = append(skipped, name)
				continue
			}
			created = append(created, *cat)
		}
		if len(seen) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'names' must contain at least one valid item"})
			return
		}
		status := http.StatusOK
		if len(created) > 0 {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"success": true, "created": created, "skipped": skipped})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'name' is required"})
		return
	}
	taxonomy := req.Taxonomy
	if taxonomy == "" {
		taxonomy = req.TaxonomyCode
	}
	cat, err := h.repo.CreateCategory(ctx, req.Name, taxonomy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cat == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "category already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "category": cat})
}

func (h *Handler) listCategories(c *gin.Context) {
	list, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": list})
}

type linkCaseReq struct {
	CaseID int `json:"caseId"`
}

func (h *Handler) linkCase(c *gin.Context) {
	categoryID, err := strconv.Atoi(c.Param("categoryId"))
	if err != nil || categoryID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid category id required"})
		return
	}
	var req linkCaseReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CaseID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'caseId' is required"})
		return
	}
	ctx := c.Request.Context()
	exists, err := h.repo.CaseExists(ctx, req.CaseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}
	if err := h.repo.AssignCategory(ctx, req.CaseID, categoryID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.SyncCaseCounts(ctx); err != nil {
		log.Printf("[Cases][Link] case count sync failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
