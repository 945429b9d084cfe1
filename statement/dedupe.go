package statement

import "database/sql"

// isDuplicate reports whether the owner already has a transaction matching the
// row on the identity tuple: type, title, note, date and amount, all equal.
// Exact match only; no trimming, no tolerance window.
func isDuplicate(db *sql.DB, userID string, row NormalizedRow) (bool, error) {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = ? AND type = ? AND title = ? AND note = ? AND date = ? AND amount = ?
		)
	`, userID, row.Type, row.Title, row.Note, row.Date.Format("2006-01-02"), row.Amount).Scan(&exists)
	return exists, err
}
