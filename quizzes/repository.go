package quizzes

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Category struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	QuizCount      int    `json:"quizCount"`
	AttemptedCount *int   `json:"attemptedCount,omitempty"`
}

type Quiz struct {
	ID                 int             `json:"id"`
	CategoryID         *int            `json:"categoryId,omitempty"`
	CategoryName       string          `json:"categoryName,omitempty"`
	CaseTitle          string          `json:"caseTitle"`
	ClinicalImages     json.RawMessage `json:"clinicalImages,omitempty"`
	Complain           string          `json:"complain,omitempty"`
	Options            []string        `json:"options"`
	CorrectOptionIndex int             `json:"correctOptionIndex"`
	Department         string          `json:"department,omitempty"`
	Explain            json.RawMessage `json:"explain,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type Attempt struct {
	ID             int       `json:"id"`
	UserID         int       `json:"userId"`
	QuizID         int       `json:"quizId"`
	SelectedOption int       `json:"selectedOption"`
	IsCorrect      bool      `json:"isCorrect"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

// BulkCreateCategories inserts the given names, skipping duplicates.
func (r *Repository) BulkCreateCategories(ctx context.Context, names []string) (int, error) {
	created := 0
	for _, name := range names {
		res, err := r.db.ExecContext(ctx,
			`INSERT IGNORE INTO quiz_categories (name) VALUES (?)`, name)
		if err != nil {
			return created, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

// ListCategories returns all categories; when userID is set each row also
// carries how many of its quizzes the user has attempted.
func (r *Repository) ListCategories(ctx context.Context, userID int) ([]Category, error) {
	if userID <= 0 {
		rows, err := r.db.QueryContext(ctx,
			`SELECT id, name, quiz_count FROM quiz_categories ORDER BY name ASC`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := make([]Category, 0)
		for rows.Next() {
			var c Category
			if err := rows.Scan(&c.ID, &c.Name, &c.QuizCount); err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, rows.Err()
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.quiz_count, COUNT(a.id)
		FROM quiz_categories c
		LEFT JOIN quizzes q ON q.category_id = c.id
		LEFT JOIN quiz_attempts a ON a.quiz_id = q.id AND a.user_id = ?
		GROUP BY c.id, c.name, c.quiz_count
		ORDER BY c.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		var attempted int
		if err := rows.Scan(&c.ID, &c.Name, &c.QuizCount, &attempted); err != nil {
			return nil, err
		}
		c.AttemptedCount = &attempted
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CategoryIDByName(ctx context.Context, name string) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM quiz_categories WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

func (r *Repository) InsertQuiz(ctx context.Context, q *Quiz) (int, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return 0, err
	}
	var images, explain any
	if len(q.ClinicalImages) > 0 {
		images = []byte(q.ClinicalImages)
	}
	if len(q.Explain) > 0 {
		explain = []byte(q.Explain)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO quizzes (category_id, case_title, clinical_images, complain, options, correct_option_index, department, explain_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.CategoryID, q.CaseTitle, images, q.Complain, options, q.CorrectOptionIndex, q.Department, explain)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return int(id), nil
}

// SyncQuizCounts recomputes every category's quiz_count.
func (r *Repository) SyncQuizCounts(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE quiz_categories c
		SET c.quiz_count = (SELECT COUNT(*) FROM quizzes WHERE quizzes.category_id = c.id)`)
	return err
}

type ListFilter struct {
	CategoryID       int
	UserID           int
	ExcludeAttempted bool
	Page             int
	Limit            int
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Quiz, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	where := ` WHERE 1=1`
	args := []any{}
	if f.CategoryID > 0 {
		where += ` AND q.category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.ExcludeAttempted && f.UserID > 0 {
		where += ` AND q.id NOT IN (SELECT quiz_id FROM quiz_attempts WHERE user_id = ?)`
		args = append(args, f.UserID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quizzes q`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT q.id, q.category_id, IFNULL(c.name,''), q.case_title, q.clinical_images,
		IFNULL(q.complain,''), q.options, q.correct_option_index, q.department, q.explain_data, q.created_at
		FROM quizzes q LEFT JOIN quiz_categories c ON c.id = q.category_id` + where +
		` ORDER BY q.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Quiz, 0, f.Limit)
	for rows.Next() {
		var quiz Quiz
		var images, options, explain []byte
		if err := rows.Scan(&quiz.ID, &quiz.CategoryID, &quiz.CategoryName, &quiz.CaseTitle, &images,
			&quiz.Complain, &options, &quiz.CorrectOptionIndex, &quiz.Department, &explain, &quiz.CreatedAt); err != nil {
			return nil, 0, err
		}
		quiz.Options = []string{}
		json.Unmarshal(options, &quiz.Options)
		quiz.ClinicalImages = images
		quiz.Explain = explain
		out = append(out, quiz)
	}
	return out, total, rows.Err()
}

func (r *Repository) QuizExists(ctx context.Context, id int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// UpsertAttempt records the user's answer, overwriting any earlier attempt
// on the same quiz.
func (r *Repository) UpsertAttempt(ctx context.Context, userID, quizID, selectedOption int, isCorrect bool) (*Attempt, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quiz_attempts (user_id, quiz_id, selected_option, is_correct)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE selected_option = VALUES(selected_option),
			is_correct = VALUES(is_correct), created_at = CURRENT_TIMESTAMP`,
		userID, quizID, selectedOption, isCorrect)
	if err != nil {
		return nil, err
	}
	var a Attempt
	err = r.db.QueryRowContext(ctx, `
		SELECT id, user_id, quiz_id, selected_option, is_correct, created_at
		FROM quiz_attempts WHERE user_id = ? AND quiz_id = ?`, userID, quizID).
		Scan(&a.ID, &a.UserID, &a.QuizID, &a.SelectedOption, &a.IsCorrect, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
