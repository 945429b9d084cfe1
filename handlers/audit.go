package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"clubledger/database"
	"clubledger/middleware"
	"clubledger/models"
	"clubledger/services"
)

// AuditTransactions lists transactions across every club, optionally filtered
// by club name. Auditor-only; the router gates it with RequireAuditor.
func AuditTransactions(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT t.id, t.user_id, t.type, t.title, t.amount, t.date, COALESCE(t.note, ''),
		       t.description, t.has_receipt, t.review_status, COALESCE(u.club_name, '')
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE 1=1
	`
	args := []interface{}{}

	if club := r.URL.Query().Get("club"); club != "" {
		query += " AND u.club_name = ?"
		args = append(args, club)
	}
	if status := r.URL.Query().Get("review_status"); status != "" {
		if !models.ValidReviewStatus(status) {
			http.Error(w, "invalid review_status", http.StatusBadRequest)
			return
		}
		query += " AND t.review_status = ?"
		args = append(args, status)
	}

	query += " ORDER BY t.date DESC, t.id DESC"

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Title, &t.Amount, &t.Date,
			&t.Note, &t.Description, &t.HasReceipt, &t.ReviewStatus, &t.ClubName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		transactions = append(transactions, t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// AuditReceipts lists every receipt across all clubs, newest first.
// Auditor-only; the router gates it with RequireAuditor.
func AuditReceipts(w http.ResponseWriter, r *http.Request) {
	rows, err := database.DB.Query(`
		SELECT id, transaction_id, filename, original_name, upload_date
		FROM receipts
		ORDER BY upload_date DESC, id DESC
	`)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		var rec models.Receipt
		if err := rows.Scan(&rec.ID, &rec.TransactionID, &rec.Filename, &rec.OriginalName, &rec.UploadDate); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rec.ImageURL = mediaURL(rec.Filename)
		receipts = append(receipts, rec)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(receipts)
}

// AuditCommentSummary lists audit comments joined with their transaction's
// title and club. Non-auditors only ever see comments on their own
// transactions; auditors see everything unless they pass only_mine=true.
// Filters: club, keyword (content substring), start_date+end_date (both
// required to take effect), only_mine.
func AuditCommentSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	isAuditor, err := services.IsAuditor(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := `
		SELECT c.id, c.transaction_id, t.title, COALESCE(ou.club_name, ''),
		       c.user_id, au.name, c.content, COALESCE(c.attachment, ''), c.created_at
		FROM audit_comments c
		JOIN transactions t ON t.id = c.transaction_id
		JOIN users ou ON ou.id = t.user_id
		JOIN users au ON au.id = c.user_id
		WHERE 1=1
	`
	args := []interface{}{}

	onlyMine := r.URL.Query().Get("only_mine") == "true"
	if !isAuditor || onlyMine {
		query += " AND t.user_id = ?"
		args = append(args, userID)
	}
	if club := r.URL.Query().Get("club"); club != "" {
		query += " AND ou.club_name = ?"
		args = append(args, club)
	}
	if keyword := r.URL.Query().Get("keyword"); keyword != "" {
		query += " AND c.content LIKE ?"
		args = append(args, "%"+keyword+"%")
	}
	start, end := r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date")
	if start != "" && end != "" {
		query += " AND date(c.created_at) >= ? AND date(c.created_at) <= ?"
		args = append(args, start, end)
	}

	query += " ORDER BY c.created_at DESC, c.id DESC"

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	comments := []models.AuditComment{}
	for rows.Next() {
		var c models.AuditComment
		err := rows.Scan(&c.ID, &c.TransactionID, &c.TransactionTitle, &c.ClubName,
			&c.UserID, &c.UserName, &c.Content, &c.Attachment, &c.CreatedAt)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if c.Attachment != "" {
			c.AttachmentURL = mediaURL(c.Attachment)
		}
		comments = append(comments, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

// UpdateReviewStatus lets an auditor move a transaction through the review
// triage states. Only the status field is writable here.
func UpdateReviewStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	var body struct {
		ReviewStatus string `json:"review_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.ValidReviewStatus(body.ReviewStatus) {
		http.Error(w, "invalid review_status", http.StatusBadRequest)
		return
	}

	result, err := database.DB.Exec(
		"UPDATE transactions SET review_status = ? WHERE id = ?", body.ReviewStatus, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"review_status": body.ReviewStatus})
}

// ClubList returns the club names of all non-auditor accounts.
func ClubList(w http.ResponseWriter, r *http.Request) {
	rows, err := database.DB.Query(`
		SELECT club_name FROM users
		WHERE role != ? AND club_name IS NOT NULL
		ORDER BY club_name
	`, models.RoleAuditor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	clubs := []string{}
	for rows.Next() {
		var club sql.NullString
		if err := rows.Scan(&club); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if club.Valid && club.String != "" {
			clubs = append(clubs, club.String)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(clubs)
}

// StatisticsByClub returns review progress per club.
func StatisticsByClub(w http.ResponseWriter, r *http.Request) {
	stats, err := services.StatisticsByClub(database.DB)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// DashboardSummary returns the auditor landing-page aggregates.
func DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := services.Summarize(database.DB)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
