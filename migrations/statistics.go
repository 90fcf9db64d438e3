package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// QuizStats returns the user's quiz attempt summary plus their most
// recent attempts, newest first.
func QuizStats(userID, limit int) (map[string]interface{}, error) {
	if db == nil {
		return nil, fmt.Errorf("db is not initialized")
	}

	var totalAttempts, correctAttempts int
	err := db.QueryRow(`
		SELECT COUNT(*), IFNULL(SUM(is_correct), 0)
		FROM quiz_attempts
		WHERE user_id = ?`, userID).Scan(&totalAttempts, &correctAttempts)
	if err != nil {
		return nil, err
	}

	accuracy := 0.0
	if totalAttempts > 0 {
		accuracy = float64(correctAttempts) / float64(totalAttempts) * 100
	}

	rows, err := db.Query(`
		SELECT qa.quiz_id, q.case_title, qa.is_correct, qa.created_at,
		       IFNULL(qc.name, '') AS category_name
		FROM quiz_attempts qa
		JOIN quizzes q ON qa.quiz_id = q.id
		LEFT JOIN quiz_categories qc ON q.category_id = qc.id
		WHERE qa.user_id = ?
		ORDER BY qa.created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []map[string]interface{}
	for rows.Next() {
		var quizID int
		var correct bool
		var caseTitle, categoryName string
		var at time.Time
		if err := rows.Scan(&quizID, &caseTitle, &correct, &at, &categoryName); err != nil {
			continue
		}
		recent = append(recent, map[string]interface{}{
			"quizId":       quizID,
			"caseTitle":    caseTitle,
			"isCorrect":    correct,
			"categoryName": categoryName,
			"attemptedAt":  at.Format(time.RFC3339),
		})
	}

	return map[string]interface{}{
		"summary": map[string]interface{}{
			"totalAttempts":   totalAttempts,
			"correctAttempts": correctAttempts,
			"accuracy":        accuracy,
		},
		"recentAttempts": recent,
	}, nil
}

// MonthlyPoints returns the user's gameplay points grouped by month for
// the last six months, newest month first.
func MonthlyPoints(userID int) ([]map[string]interface{}, error) {
	if db == nil {
		return nil, fmt.Errorf("db is not initialized")
	}

	rows, err := db.Query(`
		SELECT DATE_FORMAT(updated_at, '%Y-%m') AS month,
		       IFNULL(SUM(points_total), 0) AS points,
		       COUNT(*) AS cases_completed
		FROM gameplays
		WHERE user_id = ?
		  AND status = 'completed'
		  AND updated_at >= DATE_SUB(NOW(), INTERVAL 6 MONTH)
		GROUP BY DATE_FORMAT(updated_at, '%Y-%m')
		ORDER BY month DESC
		LIMIT 6`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var month string
		var points, completed int
		if err := rows.Scan(&month, &points, &completed); err != nil {
			continue
		}
		results = append(results, map[string]interface{}{
			"month":          month,
			"points":         points,
			"casesCompleted": completed,
		})
	}
	return results, nil
}

// MostPlayedCategory returns the category the user has completed the
// most cases in, or nil when they have not completed any.
func MostPlayedCategory(userID int) (map[string]interface{}, error) {
	if db == nil {
		return nil, fmt.Errorf("db is not initialized")
	}

	row := db.QueryRow(`
		SELECT cat.id, cat.name, COUNT(*) AS played
		FROM gameplays g
		JOIN cases c ON g.case_id = c.id
		JOIN categories cat ON c.category_id = cat.id
		WHERE g.user_id = ? AND g.status = 'completed'
		GROUP BY cat.id, cat.name
		ORDER BY played DESC
		LIMIT 1`, userID)

	var categoryID, played int
	var name string
	if err := row.Scan(&categoryID, &name, &played); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return map[string]interface{}{
		"categoryId":     categoryID,
		"categoryName":   name,
		"casesCompleted": played,
	}, nil
}
