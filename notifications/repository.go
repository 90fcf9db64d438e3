package notifications

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

type Recipient struct {
	UserID   int
	FCMToken string
}

// Recipients lists every user with a registered device token.
func (r *Repository) Recipients(ctx context.Context) ([]Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fcm_token FROM users
		WHERE fcm_token IS NOT NULL AND fcm_token <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Recipient, 0)
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.UserID, &rec.FCMToken); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type CaseTeaser struct {
	CaseID   int
	Title    string
	Category string
	ImageURL string
}

// RandomUnplayedCase picks a random case the user has not completed yet.
// Returns nil when the user has finished everything.
func (r *Repository) RandomUnplayedCase(ctx context.Context, userID int) (*CaseTeaser, error) {
	var t CaseTeaser
	var data []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.title, c.case_data
		FROM cases c
		WHERE c.id NOT IN (
			SELECT case_id FROM case_completions
			WHERE user_id = ? AND source_type = 'case' AND case_id IS NOT NULL
		)
		ORDER BY RAND() LIMIT 1`, userID).Scan(&t.CaseID, &t.Title, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload struct {
		CaseTitle    string `json:"caseTitle"`
		CaseCategory string `json:"caseCategory"`
		MainImage    string `json:"mainimage"`
	}
	json.Unmarshal(data, &payload)
	if t.Title == "" {
		t.Title = payload.CaseTitle
	}
	t.Category = payload.CaseCategory
	t.ImageURL = payload.MainImage
	return &t, nil
}

// ListTimezones returns the registered IANA zone names.
func (r *Repository) ListTimezones(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT timezone FROM supported_timezones ORDER BY timezone ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var tz string
		if err := rows.Scan(&tz); err != nil {
			return nil, err
		}
		out = append(out, tz)
	}
	return out, rows.Err()
}

func (r *Repository) AddTimezone(ctx context.Context, tz string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO supported_timezones (timezone) VALUES (?)`, tz)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
