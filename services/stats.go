package services

import (
	"database/sql"
	"fmt"
	"math"

	"clubledger/models"
)

// ClubStats aggregates the review progress of one club's books.
type ClubStats struct {
	Club           string  `json:"club"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	NotReviewed    int     `json:"not_reviewed"`
	CompletionRate float64 `json:"completion_rate"`
}

// DashboardSummary is the auditor landing-page aggregate.
type DashboardSummary struct {
	AuditedClubsCount       int     `json:"audited_clubs_count"`
	FlaggedTransactionCount int     `json:"flagged_transaction_count"`
	AverageExpenseRatio     float64 `json:"average_expense_ratio"`
	AverageReceiptRatio     float64 `json:"average_receipt_ratio"`
	AuditCompletionRate     float64 `json:"audit_completion_rate"`
}

// MonthlyTotals is one month of a club's books, keyed YYYY-MM.
type MonthlyTotals struct {
	Month   string `json:"month"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
}

// StatisticsByClub returns per-club transaction counts broken down by review
// status, ordered by club name. Transactions of users without a club are
// grouped under "unassigned".
func StatisticsByClub(db *sql.DB) ([]ClubStats, error) {
	rows, err := db.Query(`
		SELECT COALESCE(u.club_name, 'unassigned') AS club,
		       COUNT(t.id),
		       SUM(CASE WHEN t.review_status = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN t.review_status = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN t.review_status = ? THEN 1 ELSE 0 END)
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		GROUP BY club
		ORDER BY club
	`, models.ReviewCompleted, models.ReviewInProgress, models.ReviewNotReviewed)
	if err != nil {
		return nil, fmt.Errorf("aggregating club statistics: %w", err)
	}
	defer rows.Close()

	stats := []ClubStats{}
	for rows.Next() {
		var s ClubStats
		if err := rows.Scan(&s.Club, &s.Total, &s.Completed, &s.InProgress, &s.NotReviewed); err != nil {
			return nil, err
		}
		if s.Total > 0 {
			s.CompletionRate = round1(float64(s.Completed) / float64(s.Total) * 100)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ClubReviewProgress returns the review-status breakdown for a single club.
// A club with no transactions yet gets all-zero counts, not an error.
func ClubReviewProgress(db *sql.DB, club string) (ClubStats, error) {
	s := ClubStats{Club: club}
	err := db.QueryRow(`
		SELECT COUNT(t.id),
		       SUM(CASE WHEN t.review_status = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN t.review_status = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN t.review_status = ? THEN 1 ELSE 0 END)
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE u.club_name = ?
	`, models.ReviewCompleted, models.ReviewInProgress, models.ReviewNotReviewed, club).
		Scan(&s.Total, &nullInt{&s.Completed}, &nullInt{&s.InProgress}, &nullInt{&s.NotReviewed})
	if err != nil {
		return s, fmt.Errorf("aggregating review progress for %q: %w", club, err)
	}
	if s.Total > 0 {
		s.CompletionRate = round1(float64(s.Completed) / float64(s.Total) * 100)
	}
	return s, nil
}

// MonthlySummary returns a club's income and expense totals per calendar
// month, ascending. Months without transactions are absent rather than zero.
func MonthlySummary(db *sql.DB, club string) ([]MonthlyTotals, error) {
	rows, err := db.Query(`
		SELECT substr(t.date, 1, 7) AS month,
		       SUM(CASE WHEN t.type = ? THEN t.amount ELSE 0 END),
		       SUM(CASE WHEN t.type = ? THEN t.amount ELSE 0 END)
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE u.club_name = ?
		GROUP BY month
		ORDER BY month
	`, models.TypeIncome, models.TypeExpense, club)
	if err != nil {
		return nil, fmt.Errorf("aggregating monthly summary for %q: %w", club, err)
	}
	defer rows.Close()

	months := []MonthlyTotals{}
	for rows.Next() {
		var m MonthlyTotals
		if err := rows.Scan(&m.Month, &m.Income, &m.Expense); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// Summarize computes the auditor dashboard aggregates: the number of club
// accounts under audit, transactions still awaiting review, and averaged
// per-club expense and receipt ratios.
func Summarize(db *sql.DB) (DashboardSummary, error) {
	var sum DashboardSummary

	err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE role != ?`, models.RoleAuditor).
		Scan(&sum.AuditedClubsCount)
	if err != nil {
		return sum, err
	}

	var totalTx, reviewedTx int
	err = db.QueryRow(`
		SELECT COUNT(*), SUM(CASE WHEN review_status = ? THEN 1 ELSE 0 END)
		FROM transactions
	`, models.ReviewCompleted).Scan(&totalTx, &nullInt{&reviewedTx})
	if err != nil {
		return sum, err
	}
	sum.FlaggedTransactionCount = totalTx - reviewedTx
	if totalTx > 0 {
		sum.AuditCompletionRate = round1(float64(reviewedTx) / float64(totalTx) * 100)
	}

	rows, err := db.Query(`
		SELECT COUNT(*),
		       SUM(CASE WHEN type = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN has_receipt THEN 1 ELSE 0 END)
		FROM transactions t
		JOIN users u ON u.id = t.user_id AND u.role != ?
		GROUP BY t.user_id
	`, models.TypeExpense, models.RoleAuditor)
	if err != nil {
		return sum, fmt.Errorf("aggregating per-club ratios: %w", err)
	}
	defer rows.Close()

	var expenseRatios, receiptRatios []float64
	for rows.Next() {
		var total, expenses, withReceipt int
		if err := rows.Scan(&total, &expenses, &withReceipt); err != nil {
			return sum, err
		}
		if total == 0 {
			continue
		}
		expenseRatios = append(expenseRatios, float64(expenses)/float64(total)*100)
		receiptRatios = append(receiptRatios, float64(withReceipt)/float64(total)*100)
	}
	if err := rows.Err(); err != nil {
		return sum, err
	}

	sum.AverageExpenseRatio = round1(average(expenseRatios))
	sum.AverageReceiptRatio = round1(average(receiptRatios))
	return sum, nil
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// nullInt scans a nullable SUM() into an int, treating NULL as zero.
type nullInt struct{ v *int }

func (n *nullInt) Scan(src any) error {
	if src == nil {
		*n.v = 0
		return nil
	}
	switch x := src.(type) {
	case int64:
		*n.v = int(x)
	case float64:
		*n.v = int(x)
	default:
		return fmt.Errorf("unexpected type %T for count", src)
	}
	return nil
}
