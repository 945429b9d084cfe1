package services

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// feeNotePattern is the memo format members are asked to use when wiring
// membership fees: a 10-digit student id, at most one space, then a Hangul
// name of two or more characters. Nothing may trail the name.
var feeNotePattern = regexp.MustCompile(`^(\d{10})\s?([가-힣]{2,})$`)

// FeeMatchResult summarizes one matching pass. The JSON field names are part
// of the API contract with the frontend.
type FeeMatchResult struct {
	Matched int      `json:"matched"`
	Added   int      `json:"added"`
	Ignored []string `json:"ignored"`
}

// MatchPayments scans the owner's income transactions in [start, end] whose
// amount equals the club's fee and reconciles their memo lines against the
// member roster. A memo that parses upserts a member keyed on
// (owner, student id) and flips has_paid to true; has_paid is never reset
// here. Memos that do not parse are returned verbatim in Ignored.
func MatchPayments(db *sql.DB, userID string, start, end time.Time, targetAmount int64) (FeeMatchResult, error) {
	res := FeeMatchResult{Ignored: []string{}}

	rows, err := db.Query(`
		SELECT COALESCE(note, '') FROM transactions
		WHERE user_id = ? AND type = 'income' AND amount = ? AND date >= ? AND date <= ?
		ORDER BY date, id
	`, userID, targetAmount, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return res, fmt.Errorf("selecting candidate transactions: %w", err)
	}

	var notes []string
	for rows.Next() {
		var note string
		if err := rows.Scan(&note); err != nil {
			rows.Close()
			return res, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, note)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, err
	}

	for _, note := range notes {
		trimmed := strings.TrimSpace(note)
		m := feeNotePattern.FindStringSubmatch(trimmed)
		if m == nil {
			res.Ignored = append(res.Ignored, trimmed)
			continue
		}
		studentID, name := m[1], m[2]

		memberID, hasPaid, created, err := getOrCreateMember(db, userID, studentID, name)
		if err != nil {
			return res, err
		}

		if !hasPaid {
			if _, err := db.Exec("UPDATE members SET has_paid = 1 WHERE id = ?", memberID); err != nil {
				return res, fmt.Errorf("marking member %d paid: %w", memberID, err)
			}
		}

		if created {
			res.Added++
		} else {
			res.Matched++
		}
	}

	return res, nil
}

// getOrCreateMember looks up a member by (owner, student id) and inserts one
// with the parsed name when absent. The created flag distinguishes the two
// outcomes; the added-vs-matched counts depend on it.
func getOrCreateMember(db *sql.DB, userID, studentID, name string) (id int64, hasPaid, created bool, err error) {
	err = db.QueryRow(`
		SELECT id, has_paid FROM members WHERE user_id = ? AND student_id = ?
	`, userID, studentID).Scan(&id, &hasPaid)
	if err == nil {
		return id, hasPaid, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, false, fmt.Errorf("looking up member %s: %w", studentID, err)
	}

	result, err := db.Exec(`
		INSERT INTO members (user_id, name, student_id, has_paid, joined_at)
		VALUES (?, ?, ?, 0, ?)
	`, userID, name, studentID, time.Now().Format("2006-01-02"))
	if err != nil {
		return 0, false, false, fmt.Errorf("creating member %s: %w", studentID, err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, false, err
	}
	return id, false, true, nil
}
