package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"clubledger/database"
	"clubledger/filestore"
	"clubledger/middleware"
	"clubledger/models"
	"clubledger/services"

	"github.com/gorilla/mux"
)

const dateLayout = "2006-01-02"

func GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	rows, err := database.DB.Query(`
		SELECT id, user_id, type, title, amount, date, COALESCE(note, ''), description, has_receipt, review_status
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, id DESC
	`, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		transactions = append(transactions, t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

func AddTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	var t models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validateTransaction(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t.UserID = userID
	t.HasReceipt = false
	t.ReviewStatus = models.ReviewNotReviewed

	result, err := database.DB.Exec(`
		INSERT INTO transactions (user_id, type, title, amount, date, note, description, has_receipt, review_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, t.UserID, t.Type, t.Title, t.Amount, t.Date, t.Note, t.Description, t.ReviewStatus)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	t.ID, err = result.LastInsertId()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	t, err := loadTransaction(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !canViewTransaction(userID, t.UserID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// transactionUpdate uses pointers so PATCH can tell absent fields apart from
// zero values.
type transactionUpdate struct {
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Amount      *int64  `json:"amount"`
	Date        *string `json:"date"`
	Note        *string `json:"note"`
	Description *string `json:"description"`
}

func UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	t, err := loadTransaction(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if t.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var upd transactionUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if upd.Type != nil {
		t.Type = *upd.Type
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Amount != nil {
		t.Amount = *upd.Amount
	}
	if upd.Date != nil {
		t.Date = *upd.Date
	}
	if upd.Note != nil {
		t.Note = *upd.Note
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}

	if err := validateTransaction(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err = database.DB.Exec(`
		UPDATE transactions
		SET type = ?, title = ?, amount = ?, date = ?, note = ?, description = ?
		WHERE id = ?
	`, t.Type, t.Title, t.Amount, t.Date, t.Note, t.Description, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	t, err := loadTransaction(id)
	if err == sql.ErrNoRows {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if t.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// Remove stored receipt and evidence files before the rows cascade away.
	if err := deleteAttachedFiles(id); err != nil {
		log.Printf("Error deleting files for transaction %d: %v", id, err)
	}

	if _, err := database.DB.Exec("DELETE FROM transactions WHERE id = ?", id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// CreateTransactionWithReceipt creates a transaction and its first receipt in
// one multipart request, so has_receipt is true from the start.
func CreateTransactionWithReceipt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	amount, err := strconv.ParseInt(r.FormValue("amount"), 10, 64)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	t := models.Transaction{
		UserID:       userID,
		Type:         r.FormValue("type"),
		Title:        r.FormValue("title"),
		Amount:       amount,
		Date:         r.FormValue("date"),
		Note:         r.FormValue("note"),
		Description:  r.FormValue("description"),
		ReviewStatus: models.ReviewNotReviewed,
	}
	if err := validateTransaction(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename, err := filestore.Default.Save(header.Filename, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := database.DB.Exec(`
		INSERT INTO transactions (user_id, type, title, amount, date, note, description, has_receipt, review_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
	`, t.UserID, t.Type, t.Title, t.Amount, t.Date, t.Note, t.Description, t.ReviewStatus)
	if err != nil {
		filestore.Default.Delete(filename)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	t.ID, _ = result.LastInsertId()
	t.HasReceipt = true

	_, err = database.DB.Exec(`
		INSERT INTO receipts (transaction_id, filename, original_name)
		VALUES (?, ?, ?)
	`, t.ID, filename, header.Filename)
	if err != nil {
		// Roll the half-created transaction back; a row with has_receipt=1
		// and no receipts must never survive this handler.
		if _, derr := database.DB.Exec("DELETE FROM transactions WHERE id = ?", t.ID); derr != nil {
			log.Printf("Error removing transaction %d after receipt insert failure: %v", t.ID, derr)
		}
		filestore.Default.Delete(filename)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func validateTransaction(t *models.Transaction) error {
	if !models.ValidTransactionType(t.Type) {
		return errInvalid("type must be income or expense")
	}
	if t.Title == "" {
		return errInvalid("title is required")
	}
	if t.Amount < 0 {
		return errInvalid("amount must not be negative")
	}
	if _, err := time.Parse(dateLayout, t.Date); err != nil {
		return errInvalid("date must be YYYY-MM-DD")
	}
	return nil
}

type errInvalid string

func (e errInvalid) Error() string { return string(e) }

func loadTransaction(id int64) (models.Transaction, error) {
	row := database.DB.QueryRow(`
		SELECT id, user_id, type, title, amount, date, COALESCE(note, ''), description, has_receipt, review_status
		FROM transactions WHERE id = ?
	`, id)
	return scanTransaction(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Title, &t.Amount, &t.Date,
		&t.Note, &t.Description, &t.HasReceipt, &t.ReviewStatus)
	return t, err
}

// canViewTransaction allows the owner, and auditors read-only across clubs.
func canViewTransaction(userID, ownerID string) bool {
	if userID == ownerID {
		return true
	}
	isAuditor, err := services.IsAuditor(userID)
	if err != nil {
		log.Printf("Error checking auditor role: %v", err)
		return false
	}
	return isAuditor
}

// deleteAttachedFiles removes the stored files of every receipt and evidence
// file attached to a transaction.
func deleteAttachedFiles(transactionID int64) error {
	for _, table := range []string{"receipts", "evidence_files"} {
		rows, err := database.DB.Query(
			"SELECT filename FROM "+table+" WHERE transaction_id = ?", transactionID)
		if err != nil {
			return err
		}
		var filenames []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return err
			}
			filenames = append(filenames, name)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, name := range filenames {
			if err := filestore.Default.Delete(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[key], 10, 64)
}
