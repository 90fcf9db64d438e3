package gameplay

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	SourceCase      = "case"
	SourceChallenge = "dailyChallenge"

	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Points struct {
	Total     int `json:"total"`
	Diagnosis int `json:"diagnosis"`
	Tests     int `json:"tests"`
	Treatment int `json:"treatment"`
	Penalties int `json:"penalties"`
}

// Recompute derives the total from the component scores.
func (p *Points) Recompute() {
	p.Total = p.Diagnosis + p.Tests + p.Treatment - p.Penalties
}

type HistoryEntry struct {
	Type        string    `json:"type"`
	Index       int       `json:"index"`
	DeltaPoints int       `json:"deltaPoints"`
	At          time.Time `json:"at"`
}

type Gameplay struct {
	ID               int            `json:"id"`
	UserID           int            `json:"userId"`
	SourceType       string         `json:"sourceType"`
	CaseID           *int           `json:"caseId,omitempty"`
	DailyChallengeID *int           `json:"dailyChallengeId,omitempty"`
	Status           string         `json:"status"`
	StartedAt        time.Time      `json:"startedAt"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	DiagnosisIndex   *int           `json:"diagnosisIndex"`
	TestIndices      []int          `json:"testIndices"`
	TreatmentIndices []int          `json:"treatmentIndices"`
	Points           Points         `json:"points"`
	History          []HistoryEntry `json:"history"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

const gameplayColumns = `id, user_id, source_type, case_id, daily_challenge_id, status,
	started_at, completed_at, diagnosis_index, test_indices, treatment_indices,
	points_total, points_diagnosis, points_tests, points_treatment, points_penalties, history`

func scanGameplay(row interface{ Scan(...any) error }) (*Gameplay, error) {
	var g Gameplay
	var tests, treatments, history []byte
	err := row.Scan(&g.ID, &g.UserID, &g.SourceType, &g.CaseID, &g.DailyChallengeID, &g.Status,
		&g.StartedAt, &g.CompletedAt, &g.DiagnosisIndex, &tests, &treatments,
		&g.Points.Total, &g.Points.Diagnosis, &g.Points.Tests, &g.Points.Treatment, &g.Points.Penalties, &history)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.TestIndices = []int{}
	g.TreatmentIndices = []int{}
	g.History = []HistoryEntry{}
	if len(tests) > 0 {
		json.Unmarshal(tests, &g.TestIndices)
	}
	if len(treatments) > 0 {
		json.Unmarshal(treatments, &g.TreatmentIndices)
	}
	if len(history) > 0 {
		json.Unmarshal(history, &g.History)
	}
	return &g, nil
}

func (r *Repository) Get(ctx context.Context, id int) (*Gameplay, error) {
	return scanGameplay(r.db.QueryRowContext(ctx,
		`SELECT `+gameplayColumns+` FROM gameplays WHERE id = ?`, id))
}

// FindOrCreate returns the user's gameplay for the given source, creating a
// fresh one when none exists. The unique keys on (user_id, case_id) and
// (user_id, daily_challenge_id) make concurrent creates converge.
func (r *Repository) FindOrCreate(ctx context.Context, userID int, sourceType string, refID int) (*Gameplay, error) {
	refCol := "case_id"
	if sourceType == SourceChallenge {
		refCol = "daily_challenge_id"
	}
	find := func() (*Gameplay, error) {
		return scanGameplay(r.db.QueryRowContext(ctx,
			`SELECT `+gameplayColumns+` FROM gameplays WHERE user_id = ? AND `+refCol+` = ? AND source_type = ?`,
			userID, refID, sourceType))
	}
	if g, err := find(); err != nil || g != nil {
		return g, err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gameplays (user_id, source_type, `+refCol+`) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE id = id`,
		userID, sourceType, refID)
	if err != nil {
		return nil, err
	}
	return find()
}

type ListFilter struct {
	UserID           int
	CaseID           int
	DailyChallengeID int
	SourceType       string
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]*Gameplay, error) {
	q := `SELECT ` + gameplayColumns + ` FROM gameplays WHERE 1=1`
	args := []any{}
	if f.UserID > 0 {
		q += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.CaseID > 0 {
		q += ` AND case_id = ?`
		args = append(args, f.CaseID)
	}
	if f.DailyChallengeID > 0 {
		q += ` AND daily_challenge_id = ?`
		args = append(args, f.DailyChallengeID)
	}
	if f.SourceType != "" {
		q += ` AND source_type = ?`
		args = append(args, f.SourceType)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*Gameplay, 0)
	for rows.Next() {
		g, err := scanGameplay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type Brief struct {
	ID          int        `json:"id"`
	SourceType  string     `json:"sourceType"`
	CaseID      *int       `json:"caseId,omitempty"`
	ChallengeID *int       `json:"dailyChallengeId,omitempty"`
	Status      string     `json:"status"`
	Total       int        `json:"pointsTotal"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (r *Repository) ListBrief(ctx context.Context, userID int, status string) ([]Brief, error) {
	q := `SELECT id, source_type, case_id, daily_challenge_id, status, points_total, started_at, completed_at
		FROM gameplays WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Brief, 0)
	for rows.Next() {
		var b Brief
		if err := rows.Scan(&b.ID, &b.SourceType, &b.CaseID, &b.ChallengeID, &b.Status, &b.Total, &b.StartedAt, &b.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) Save(ctx context.Context, g *Gameplay) error {
	tests, _ := json.Marshal(g.TestIndices)
	treatments, _ := json.Marshal(g.TreatmentIndices)
	history, _ := json.Marshal(g.History)
	_, err := r.db.ExecContext(ctx, `
		UPDATE gameplays SET status = ?, started_at = ?, completed_at = ?, diagnosis_index = ?,
			test_indices = ?, treatment_indices = ?, history = ?,
			points_total = ?, points_diagnosis = ?, points_tests = ?, points_treatment = ?, points_penalties = ?
		WHERE id = ?`,
		g.Status, g.StartedAt, g.CompletedAt, g.DiagnosisIndex,
		tests, treatments, history,
		g.Points.Total, g.Points.Diagnosis, g.Points.Tests, g.Points.Treatment, g.Points.Penalties,
		g.ID)
	return err
}

func (r *Repository) UserExists(ctx context.Context, id int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

func (r *Repository) CaseExists(ctx context.Context, id int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

func (r *Repository) ChallengeExists(ctx context.Context, id int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_challenges WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// ChallengeDate returns the YYYY-MM-DD date of a daily challenge.
func (r *Repository) ChallengeDate(ctx context.Context, id int) (string, error) {
	var date string
	err := r.db.QueryRowContext(ctx, `SELECT date FROM daily_challenges WHERE id = ?`, id).Scan(&date)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return date, err
}

// UpsertTopUser writes the user's current score into the top_users table.
func (r *Repository) UpsertTopUser(ctx context.Context, userID, score int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO top_users (user_id, score) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE score = VALUES(score)`,
		userID, score)
	return err
}

// RefreshTopFlags recomputes users.in_top10 from the current top_users standings.
func (r *Repository) RefreshTopFlags(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE users u
		JOIN (SELECT user_id FROM top_users ORDER BY score DESC, id ASC LIMIT 10) t
			ON t.user_id = u.id
		SET u.in_top10 = 1
		WHERE u.in_top10 = 0`); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users u
		LEFT JOIN (SELECT user_id FROM top_users ORDER BY score DESC, id ASC LIMIT 10) t
			ON t.user_id = u.id
		SET u.in_top10 = 0
		WHERE u.in_top10 = 1 AND t.user_id IS NULL`)
	return err
}

// UpsertChallengeScore records a completed challenge run on the per-date leaderboard.
func (r *Repository) UpsertChallengeScore(ctx context.Context, date string, userID, challengeID, gameplayID, score int, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_challenge_leaderboard (date, user_id, daily_challenge_id, gameplay_id, score, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE daily_challenge_id = VALUES(daily_challenge_id),
			gameplay_id = VALUES(gameplay_id), score = VALUES(score), completed_at = VALUES(completed_at)`,
		date, userID, challengeID, gameplayID, score, completedAt)
	return err
}

// RecordCompletion registers a finished gameplay for quick completed-work
// lookups. Repeat completions are idempotent.
func (r *Repository) RecordCompletion(ctx context.Context, g *Gameplay) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT IGNORE INTO case_completions (user_id, source_type, case_id, daily_challenge_id, gameplay_id, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.UserID, g.SourceType, g.CaseID, g.DailyChallengeID, g.ID, g.CompletedAt)
	return err
}

// CompletionCounts reports how many cases and daily challenges the user finished.
func (r *Repository) CompletionCounts(ctx context.Context, userID int) (cases, challenges int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			IFNULL(SUM(CASE WHEN source_type = 'case' THEN 1 ELSE 0 END), 0),
			IFNULL(SUM(CASE WHEN source_type = 'dailyChallenge' THEN 1 ELSE 0 END), 0)
		FROM case_completions WHERE user_id = ?`, userID).Scan(&cases, &challenges)
	return
}
