package leaderboard

import (
	"context"
	"database/sql"
)

type Entry struct {
	Rank    int    `json:"rank"`
	UserID  int    `json:"userId"`
	Name    string `json:"name"`
	InTop10 bool   `json:"inTop10"`
	Score   int    `json:"score"`
}

type Standing struct {
	UserID  int    `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	InTop10 bool   `json:"inTop10"`
	Score   int    `json:"score"`
	Rank    int    `json:"rank"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) TopTen(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.user_id, u.name, u.in_top10, t.score
		FROM top_users t
		JOIN users u ON u.id = t.user_id
		ORDER BY t.score DESC, t.id ASC
		LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Entry, 0, 10)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Name, &e.InTop10, &e.Score); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// Position ranks a user by counting strictly greater scores plus one.
func (r *Repository) Position(ctx context.Context, userID int) (*Standing, error) {
	var s Standing
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, in_top10, cumulative_points FROM users WHERE id = ?`, userID).
		Scan(&s.UserID, &s.Name, &s.Email, &s.InTop10, &s.Score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ahead int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM top_users WHERE score > ?`, s.Score).Scan(&ahead); err != nil {
		return nil, err
	}
	s.Rank = ahead + 1
	return &s, nil
}
