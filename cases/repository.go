package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
)

type Category struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Taxonomy  string `json:"taxonomy,omitempty"`
	CaseCount int    `json:"caseCount"`
}

type Case struct {
	ID         int             `json:"id"`
	CategoryID *int            `json:"categoryId,omitempty"`
	Title      string          `json:"title,omitempty"`
	CaseData   json.RawMessage `json:"caseData"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

// NormalizeName lowercases and trims a category name. Categories are
// keyed on the normalized form.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, taxonomy, case_count FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Taxonomy, &c.CaseCount); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *Repository) CategoryByName(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, taxonomy, case_count FROM categories WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &c.Taxonomy, &c.CaseCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) taxonomyExists(ctx context.Context, taxonomy string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE taxonomy = ? AND taxonomy <> ''`, taxonomy).Scan(&n)
	return n > 0, err
}

// CreateCategory inserts a new category. Returns (nil, nil) when the name
// or taxonomy already exists so the handler can answer with a conflict.
func (r *Repository) CreateCategory(ctx context.Context, name, taxonomy string) (*Category, error) {
	name = NormalizeName(name)
	if existing, err := r.CategoryByName(ctx, name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, nil
	}
	if taxonomy != "" {
		if taken, err := r.taxonomyExists(ctx, taxonomy); err != nil {
			return nil, err
		} else if taken {
			return nil, nil
		}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, taxonomy) VALUES (?, ?)`, name, taxonomy)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &Category{ID: int(id), Name: name, Taxonomy: taxonomy}, nil
}

// EnsureCategory returns the id of the named category, creating it when
// missing. created reports whether an insert happened.
func (r *Repository) EnsureCategory(ctx context.Context, name string) (id int, created bool, err error) {
	name = NormalizeName(name)
	if existing, err := r.CategoryByName(ctx, name); err != nil {
		return 0, false, err
	} else if existing != nil {
		return existing.ID, false, nil
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		// Lost a race on the unique name, read it back.
		if existing, e2 := r.CategoryByName(ctx, name); e2 == nil && existing != nil {
			return existing.ID, false, nil
		}
		return 0, false, err
	}
	newID, _ := res.LastInsertId()
	return int(newID), true, nil
}

// FindByBusinessID locates a case by the caseId embedded in its payload.
func (r *Repository) FindByBusinessID(ctx context.Context, caseID string) (int, bool, error) {
	var id int
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM cases WHERE JSON_UNQUOTE(JSON_EXTRACT(case_data, '$.caseId')) = ? LIMIT 1`,
		caseID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *Repository) InsertCase(ctx context.Context, categoryID *int, title string, data []byte) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cases (category_id, title, case_data) VALUES (?, ?, ?)`,
		categoryID, title, data)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return int(id), nil
}

func (r *Repository) UpdateCase(ctx context.Context, id int, categoryID *int, title string, data []byte) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cases SET category_id = ?, title = ?, case_data = ? WHERE id = ?`,
		categoryID, title, data, id)
	return err
}

func (r *Repository) GetCase(ctx context.Context, id int) (*Case, error) {
	var c Case
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, title, case_data FROM cases WHERE id = ?`, id).
		Scan(&c.ID, &c.CategoryID, &c.Title, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CaseData = data
	return &c, nil
}

func (r *Repository) CaseExists(ctx context.Context, id int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

func (r *Repository) AssignCategory(ctx context.Context, caseID, categoryID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cases SET category_id = ? WHERE id = ?`, categoryID, caseID)
	return err
}

// SyncCaseCounts recomputes every category's case_count from the cases table.
func (r *Repository) SyncCaseCounts(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE categories c
		SET c.case_count = (SELECT COUNT(*) FROM cases WHERE cases.category_id = c.id)`)
	return err
}
