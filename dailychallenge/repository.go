package dailychallenge

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Metadata struct {
	Difficulty  string `json:"difficulty"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Challenge struct {
	ID        int             `json:"id"`
	Date      string          `json:"date"`
	CaseData  json.RawMessage `json:"caseData,omitempty"`
	Metadata  Metadata        `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

const challengeColumns = `id, date, case_data, difficulty, category, title, IFNULL(description,''), created_at, updated_at`

func scanChallenge(row interface{ Scan(...any) error }) (*Challenge, error) {
	var ch Challenge
	var data []byte
	err := row.Scan(&ch.ID, &ch.Date, &data, &ch.Metadata.Difficulty, &ch.Metadata.Category,
		&ch.Metadata.Title, &ch.Metadata.Description, &ch.CreatedAt, &ch.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ch.CaseData = data
	return &ch, nil
}

func (r *Repository) ByDate(ctx context.Context, date string) (*Challenge, error) {
	return scanChallenge(r.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM daily_challenges WHERE date = ?`, date))
}

func (r *Repository) Create(ctx context.Context, date string, caseData []byte, m Metadata) (*Challenge, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_challenges (date, case_data, difficulty, category, title, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		date, caseData, m.Difficulty, m.Category, m.Title, m.Description)
	if err != nil {
		return nil, err
	}
	return r.ByDate(ctx, date)
}

func (r *Repository) Update(ctx context.Context, date string, caseData []byte, m *Metadata) (*Challenge, error) {
	existing, err := r.ByDate(ctx, date)
	if err != nil || existing == nil {
		return existing, err
	}
	if caseData != nil {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE daily_challenges SET case_data = ? WHERE date = ?`, caseData, date); err != nil {
			return nil, err
		}
	}
	if m != nil {
		merged := existing.Metadata
		if m.Difficulty != "" {
			merged.Difficulty = m.Difficulty
		}
		if m.Category != "" {
			merged.Category = m.Category
		}
		if m.Title != "" {
			merged.Title = m.Title
		}
		if m.Description != "" {
			merged.Description = m.Description
		}
		if _, err := r.db.ExecContext(ctx, `
			UPDATE daily_challenges SET difficulty = ?, category = ?, title = ?, description = ?
			WHERE date = ?`,
			merged.Difficulty, merged.Category, merged.Title, merged.Description, date); err != nil {
			return nil, err
		}
	}
	return r.ByDate(ctx, date)
}

func (r *Repository) Delete(ctx context.Context, date string) (*Challenge, error) {
	existing, err := r.ByDate(ctx, date)
	if err != nil || existing == nil {
		return existing, err
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM daily_challenges WHERE date = ?`, date)
	return existing, err
}

// List returns challenges newest first, without the case payload.
func (r *Repository) List(ctx context.Context, limit, skip int) ([]Challenge, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_challenges`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, difficulty, category, title, IFNULL(description,''), created_at, updated_at
		FROM daily_challenges ORDER BY date DESC LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Challenge, 0, limit)
	for rows.Next() {
		var ch Challenge
		if err := rows.Scan(&ch.ID, &ch.Date, &ch.Metadata.Difficulty, &ch.Metadata.Category,
			&ch.Metadata.Title, &ch.Metadata.Description, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, ch)
	}
	return out, total, rows.Err()
}

type BoardEntry struct {
	Rank        int       `json:"rank"`
	UserID      int       `json:"userId"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// TopForDate returns the best runs for a date, fastest completion breaking ties.
func (r *Repository) TopForDate(ctx context.Context, date string, limit int) ([]BoardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.user_id, u.name, l.score, l.completed_at
		FROM daily_challenge_leaderboard l
		JOIN users u ON u.id = l.user_id
		WHERE l.date = ?
		ORDER BY l.score DESC, l.completed_at ASC
		LIMIT ?`, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BoardEntry, 0, limit)
	for rows.Next() {
		var e BoardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Score, &e.CompletedAt); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) ParticipantCount(ctx context.Context, date string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_challenge_leaderboard WHERE date = ?`, date).Scan(&n)
	return n, err
}

// UserRank finds the user's entry for a date and its rank under the same
// ordering as TopForDate. Returns nil when the user has no entry.
func (r *Repository) UserRank(ctx context.Context, date string, userID int) (*BoardEntry, error) {
	var e BoardEntry
	e.UserID = userID
	err := r.db.QueryRowContext(ctx, `
		SELECT u.name, l.score, l.completed_at
		FROM daily_challenge_leaderboard l
		JOIN users u ON u.id = l.user_id
		WHERE l.date = ? AND l.user_id = ?`, date, userID).
		Scan(&e.Name, &e.Score, &e.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ahead int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_challenge_leaderboard
		WHERE date = ? AND (score > ? OR (score = ? AND completed_at < ?))`,
		date, e.Score, e.Score, e.CompletedAt).Scan(&ahead); err != nil {
		return nil, err
	}
	e.Rank = ahead + 1
	return &e, nil
}
