package migrations

import (
	"database/sql"
	"fmt"
)

// AddIdentityIndex indexes the tuple the statement importer deduplicates on,
// so the per-row duplicate check stays a point lookup as ledgers grow.
func AddIdentityIndex(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transactions_identity
		ON transactions (user_id, type, title, note, date, amount);
	`)
	if err != nil {
		return fmt.Errorf("failed to create identity index: %w", err)
	}
	return nil
}
