package migrations

import (
	"database/sql"
	"fmt"
)

// CreateBaseSchema creates all the base tables needed for the application
func CreateBaseSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			club_name TEXT UNIQUE,
			role TEXT NOT NULL DEFAULT 'member'
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			amount INTEGER NOT NULL CHECK (amount >= 0),
			date TEXT NOT NULL,
			note TEXT,
			description TEXT NOT NULL DEFAULT '',
			has_receipt BOOLEAN NOT NULL DEFAULT 0,
			review_status TEXT NOT NULL DEFAULT 'not_reviewed'
		);

		CREATE TABLE IF NOT EXISTS receipts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			original_name TEXT NOT NULL,
			upload_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS evidence_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			original_name TEXT NOT NULL,
			uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			student_id TEXT NOT NULL,
			college TEXT,
			department TEXT,
			grade INTEGER,
			phone_number TEXT,
			member_type TEXT,
			has_paid BOOLEAN NOT NULL DEFAULT 0,
			joined_at TEXT NOT NULL,
			UNIQUE(user_id, student_id)
		);

		CREATE TABLE IF NOT EXISTS notices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			author_id TEXT REFERENCES users(id),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS notice_attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			notice_id INTEGER NOT NULL REFERENCES notices(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			original_name TEXT NOT NULL,
			uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS audit_comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			attachment TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}

	return nil
}
