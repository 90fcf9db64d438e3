package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// User is the account record shared across the application modules.
type User struct {
	ID               int        `db:"id"`
	Name             string     `db:"name"`
	Email            string     `db:"email"`
	Gender           string     `db:"gender"`
	CumulativePoints int        `db:"cumulative_points"`
	InTop10          bool       `db:"in_top10"`
	FCMToken         string     `db:"fcm_token"`
	IsPremium        bool       `db:"is_premium"`
	PremiumExpiresAt *time.Time `db:"premium_expires_at"`
	PremiumPlan      string     `db:"premium_plan"`
	ReferralCode     string     `db:"referral_code"`
	Hearts           int        `db:"hearts"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

var db *sql.DB

// Init sets the DB connection for migrations and queries
func Init(database *sql.DB) {
	db = database
}

// Migrate creates required tables if they do not exist
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(191) NOT NULL UNIQUE,
			gender VARCHAR(10) NOT NULL DEFAULT '',
			cumulative_points INT NOT NULL DEFAULT 0,
			in_top10 TINYINT(1) NOT NULL DEFAULT 0,
			fcm_token VARCHAR(255) NOT NULL DEFAULT '',
			is_premium TINYINT(1) NOT NULL DEFAULT 0,
			premium_expires_at DATETIME NULL,
			premium_plan VARCHAR(100) NOT NULL DEFAULT '',
			referral_code VARCHAR(20) NOT NULL DEFAULT '',
			hearts INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_users_in_top10 (in_top10),
			INDEX idx_users_referral (referral_code)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS categories (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			taxonomy VARCHAR(100) NOT NULL DEFAULT '',
			case_count INT NOT NULL DEFAULT 0
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS cases (
			id INT AUTO_INCREMENT PRIMARY KEY,
			category_id INT NULL,
			title VARCHAR(255) NOT NULL DEFAULT '',
			case_data JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS daily_challenges (
			id INT AUTO_INCREMENT PRIMARY KEY,
			date CHAR(10) NOT NULL UNIQUE,
			case_data JSON NOT NULL,
			difficulty VARCHAR(10) NOT NULL DEFAULT 'medium',
			category VARCHAR(100) NOT NULL DEFAULT '',
			title VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS gameplays (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			source_type ENUM('case','dailyChallenge') NOT NULL DEFAULT 'case',
			case_id INT NULL,
			daily_challenge_id INT NULL,
			status ENUM('in_progress','completed') NOT NULL DEFAULT 'in_progress',
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME NULL,
			diagnosis_index INT NULL,
			test_indices JSON NULL,
			treatment_indices JSON NULL,
			points_total INT NOT NULL DEFAULT 0,
			points_diagnosis INT NOT NULL DEFAULT 0,
			points_tests INT NOT NULL DEFAULT 0,
			points_treatment INT NOT NULL DEFAULT 0,
			points_penalties INT NOT NULL DEFAULT 0,
			history JSON NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_gameplay_case (user_id, case_id),
			UNIQUE KEY uq_gameplay_challenge (user_id, daily_challenge_id),
			INDEX idx_gameplays_status (status, started_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE,
			FOREIGN KEY (daily_challenge_id) REFERENCES daily_challenges(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS case_completions (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			source_type ENUM('case','dailyChallenge') NOT NULL DEFAULT 'case',
			case_id INT NULL,
			daily_challenge_id INT NULL,
			gameplay_id INT NOT NULL,
			completed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_completion_case (user_id, case_id),
			UNIQUE KEY uq_completion_challenge (user_id, daily_challenge_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (gameplay_id) REFERENCES gameplays(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS top_users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL UNIQUE,
			score INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_top_users_score (score DESC, id ASC),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS daily_challenge_leaderboard (
			id INT AUTO_INCREMENT PRIMARY KEY,
			date CHAR(10) NOT NULL,
			user_id INT NOT NULL,
			daily_challenge_id INT NOT NULL,
			gameplay_id INT NOT NULL,
			score INT NOT NULL DEFAULT 0,
			completed_at DATETIME NOT NULL,
			UNIQUE KEY uq_dcl_date_user (date, user_id),
			INDEX idx_dcl_ranking (date, score DESC, completed_at ASC),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (daily_challenge_id) REFERENCES daily_challenges(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS quiz_categories (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			quiz_count INT NOT NULL DEFAULT 0
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS quizzes (
			id INT AUTO_INCREMENT PRIMARY KEY,
			category_id INT NULL,
			case_title VARCHAR(255) NOT NULL DEFAULT '',
			clinical_images JSON NULL,
			complain TEXT,
			options JSON NOT NULL,
			correct_option_index TINYINT NOT NULL DEFAULT 0,
			department VARCHAR(100) NOT NULL DEFAULT '',
			explain_data JSON NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (category_id) REFERENCES quiz_categories(id) ON DELETE SET NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS quiz_attempts (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			quiz_id INT NOT NULL,
			selected_option TINYINT NOT NULL,
			is_correct TINYINT(1) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_attempt (user_id, quiz_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (quiz_id) REFERENCES quizzes(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS supported_timezones (
			id INT AUTO_INCREMENT PRIMARY KEY,
			timezone VARCHAR(64) NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `id, name, email, IFNULL(gender,''), cumulative_points, in_top10, IFNULL(fcm_token,''),
	is_premium, premium_expires_at, IFNULL(premium_plan,''), IFNULL(referral_code,''), hearts, created_at, updated_at`

func scanUser(row *sql.Row) *User {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Gender, &u.CumulativePoints, &u.InTop10, &u.FCMToken,
		&u.IsPremium, &u.PremiumExpiresAt, &u.PremiumPlan, &u.ReferralCode, &u.Hearts, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil
	}
	return &u
}

// GetUserByEmail retrieves a user from DB by email
func GetUserByEmail(email string) *User {
	if db == nil {
		return nil
	}
	return scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", email))
}

// GetUserByID retrieves a user by its ID
func GetUserByID(id int) *User {
	if db == nil {
		return nil
	}
	return scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
}

// GetUserByReferralCode retrieves a user by referral code (case-insensitive)
func GetUserByReferralCode(code string) *User {
	if db == nil {
		return nil
	}
	return scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE referral_code = UPPER(?) LIMIT 1", code))
}

// CreateUser inserts a new user record and returns its id
func CreateUser(name, email, gender string) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("db is not initialized")
	}
	res, err := db.Exec("INSERT INTO users (name, email, gender) VALUES (?, ?, ?)", name, email, gender)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// UpdateFCMToken stores the push token for a user
func UpdateFCMToken(userID int, token string) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec("UPDATE users SET fcm_token = ? WHERE id = ?", token, userID)
	return err
}

// ClearFCMToken removes an invalid push token wherever it is stored
func ClearFCMToken(token string) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec("UPDATE users SET fcm_token = '' WHERE fcm_token = ?", token)
	return err
}

// AddHearts credits hearts to a user
func AddHearts(userID, delta int) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec("UPDATE users SET hearts = hearts + ? WHERE id = ?", delta, userID)
	return err
}

// SetReferralCode assigns a referral code if the user has none yet
func SetReferralCode(userID int, code string) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec("UPDATE users SET referral_code = UPPER(?) WHERE id = ? AND referral_code = ''", code, userID)
	return err
}

// AddCumulativePoints credits points and returns the new total
func AddCumulativePoints(userID, delta int) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("db is not initialized")
	}
	if _, err := db.Exec("UPDATE users SET cumulative_points = cumulative_points + ? WHERE id = ?", delta, userID); err != nil {
		return 0, err
	}
	var total int
	err := db.QueryRow("SELECT cumulative_points FROM users WHERE id = ?", userID).Scan(&total)
	return total, err
}

// SetPremium updates the premium subscription fields
func SetPremium(userID int, premium bool, plan string, expiresAt *time.Time) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec("UPDATE users SET is_premium = ?, premium_plan = ?, premium_expires_at = ? WHERE id = ?",
		premium, plan, expiresAt, userID)
	return err
}

// SetPremiumByEmail is the webhook-facing variant keyed by app user email
func SetPremiumByEmail(email string, premium bool, plan string, expiresAt *time.Time) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec("UPDATE users SET is_premium = ?, premium_plan = ?, premium_expires_at = ? WHERE email = ?",
		premium, plan, expiresAt, email)
	return err
}
