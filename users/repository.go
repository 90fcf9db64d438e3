package users

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

// completedCaseIDs unions the completion records with completed gameplays,
// the gameplay table being the source of truth.
func (r *Repository) completedCaseIDs(ctx context.Context, userID int) (map[int]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT case_id FROM case_completions
		WHERE user_id = ? AND source_type = 'case' AND case_id IS NOT NULL
		UNION
		SELECT case_id FROM gameplays
		WHERE user_id = ? AND source_type = 'case' AND status = 'completed' AND case_id IS NOT NULL`,
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}

type NextCase struct {
	CategoryID   int             `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	CaseID       int             `json:"caseId"`
	CaseData     json.RawMessage `json:"caseData"`
}

// NextCasesPerCategory picks, for each category, the first case the user
// has not completed yet. Categories the user finished are omitted.
func (r *Repository) NextCasesPerCategory(ctx context.Context, userID int) ([]NextCase, error) {
	done, err := r.completedCaseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT cat.id, cat.name, c.id, c.case_data
		FROM categories cat
		JOIN cases c ON c.category_id = cat.id
		ORDER BY cat.name ASC, c.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]NextCase, 0)
	lastCategory := 0
	for rows.Next() {
		var nc NextCase
		var data []byte
		if err := rows.Scan(&nc.CategoryID, &nc.CategoryName, &nc.CaseID, &data); err != nil {
			return nil, err
		}
		if nc.CategoryID == lastCategory || done[nc.CaseID] {
			continue
		}
		nc.CaseData = data
		out = append(out, nc)
		lastCategory = nc.CategoryID
	}
	return out, rows.Err()
}

type UnsolvedCase struct {
	CaseID         int    `json:"caseId"`
	ChiefComplaint string `json:"chiefComplaint"`
}

type DepartmentProgress struct {
	CategoryID     int            `json:"categoryId"`
	Name           string         `json:"name"`
	TotalCount     int            `json:"totalCount"`
	CompletedCount int            `json:"completedCount"`
	UnsolvedCases  []UnsolvedCase `json:"unsolvedCases"`
}

// DepartmentProgressFor reports per-category completion counts plus a few
// unsolved case teasers, sorted by category name.
func (r *Repository) DepartmentProgressFor(ctx context.Context, userID, limit int) ([]DepartmentProgress, error) {
	done, err := r.completedCaseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT cat.id, cat.name, c.id, c.case_data
		FROM categories cat
		JOIN cases c ON c.category_id = cat.id
		ORDER BY cat.name ASC, c.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DepartmentProgress, 0)
	var current *DepartmentProgress
	for rows.Next() {
		var categoryID, caseID int
		var name string
		var data []byte
		if err := rows.Scan(&categoryID, &name, &caseID, &data); err != nil {
			return nil, err
		}
		if current == nil || current.CategoryID != categoryID {
			out = append(out, DepartmentProgress{CategoryID: categoryID, Name: name, UnsolvedCases: []UnsolvedCase{}})
			current = &out[len(out)-1]
		}
		current.TotalCount++
		if done[caseID] {
			current.CompletedCount++
			continue
		}
		if len(current.UnsolvedCases) < limit {
			current.UnsolvedCases = append(current.UnsolvedCases, UnsolvedCase{
				CaseID:         caseID,
				ChiefComplaint: chiefComplaint(data),
			})
		}
	}
	return out, rows.Err()
}

// chiefComplaint digs the first step's chief complaint out of the case
// payload, falling back to the case title.
func chiefComplaint(caseData []byte) string {
	var payload struct {
		CaseTitle string `json:"caseTitle"`
		Steps     []struct {
			Data struct {
				ChiefComplaint string `json:"chiefComplaint"`
			} `json:"data"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(caseData, &payload); err != nil {
		return ""
	}
	if len(payload.Steps) > 0 && payload.Steps[0].Data.ChiefComplaint != "" {
		return payload.Steps[0].Data.ChiefComplaint
	}
	return payload.CaseTitle
}
