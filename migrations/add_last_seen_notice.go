package migrations

import (
	"database/sql"
	"fmt"
	"strings"
)

// AddLastSeenNotice adds the timestamp used by the new-notice badge.
func AddLastSeenNotice(db *sql.DB) error {
	_, err := db.Exec(`ALTER TABLE users ADD COLUMN last_seen_notice TIMESTAMP;`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return fmt.Errorf("failed to add last_seen_notice column: %w", err)
	}
	return nil
}
