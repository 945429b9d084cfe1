package statement

import (
	"database/sql"
	"fmt"
	"io"
	"sync"

	"clubledger/models"
)

// Result summarizes one upload. The JSON field names are part of the API
// contract with the frontend.
type Result struct {
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

// ownerLocks serializes ingestion per owner. Two concurrent uploads of
// overlapping data by the same user would otherwise race between the
// duplicate check and the insert. Entries are never evicted: one mutex per
// owner ever seen, a few dozen accounts at most.
var ownerLocks sync.Map

func lockOwner(userID string) *sync.Mutex {
	mu, _ := ownerLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Ingest parses a bank export and persists every row that is not already
// present for the owner. Rows that fail to parse are dropped individually;
// partial success is the expected outcome and nothing is rolled back.
// Re-ingesting the same file inserts nothing and reports every row skipped.
func Ingest(db *sql.DB, userID, bank, filename string, r io.Reader) (Result, error) {
	rows, omitted, err := Normalize(bank, filename, r)
	if err != nil {
		return Result{}, err
	}

	mu := lockOwner(userID)
	mu.Lock()
	defer mu.Unlock()

	var res Result
	for _, row := range rows {
		dup, err := isDuplicate(db, userID, row)
		if err != nil {
			return res, fmt.Errorf("checking duplicate: %w", err)
		}
		if dup {
			res.Skipped++
			continue
		}

		_, err = db.Exec(`
			INSERT INTO transactions (user_id, type, title, amount, date, note, has_receipt, review_status)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		`, userID, row.Type, row.Title, row.Amount, row.Date.Format("2006-01-02"), row.Note, models.ReviewNotReviewed)
		if err != nil {
			return res, fmt.Errorf("inserting transaction: %w", err)
		}
		res.Inserted++
	}

	res.Message = fmt.Sprintf("upload complete: %d inserted, %d duplicates skipped", res.Inserted, res.Skipped)
	if omitted > 0 {
		res.Message += fmt.Sprintf(", %d rows omitted", omitted)
	}
	return res, nil
}
