package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"clubledger/database"
	"clubledger/filestore"
	"clubledger/middleware"
)

// UploadReceipt attaches a receipt image to one of the caller's transactions
// and keeps the cached has_receipt flag in sync.
func UploadReceipt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	transactionID, err := strconv.ParseInt(r.FormValue("transaction"), 10, 64)
	if err != nil {
		http.Error(w, "image and transaction id are required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image and transaction id are required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	t, err := loadTransaction(transactionID)
	if err == sql.ErrNoRows || (err == nil && t.UserID != userID) {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename, err := filestore.Default.Save(header.Filename, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, err = database.DB.Exec(`
		INSERT INTO receipts (transaction_id, filename, original_name)
		VALUES (?, ?, ?)
	`, transactionID, filename, header.Filename)
	if err != nil {
		filestore.Default.Delete(filename)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !t.HasReceipt {
		if _, err := database.DB.Exec("UPDATE transactions SET has_receipt = 1 WHERE id = ?", transactionID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "uploaded"})
}

// DeleteReceipt removes a single receipt; has_receipt is cleared when it was
// the transaction's last one.
func DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid receipt id", http.StatusBadRequest)
		return
	}

	var transactionID int64
	var filename string
	err = database.DB.QueryRow(`
		SELECT r.transaction_id, r.filename
		FROM receipts r
		JOIN transactions t ON t.id = r.transaction_id
		WHERE r.id = ? AND t.user_id = ?
	`, id, userID).Scan(&transactionID, &filename)
	if err == sql.ErrNoRows {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := database.DB.Exec("DELETE FROM receipts WHERE id = ?", id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	filestore.Default.Delete(filename)

	if err := refreshHasReceipt(transactionID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

// DeleteReceiptsByTransaction removes every receipt of a transaction.
func DeleteReceiptsByTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	transactionID, err := pathID(r, "transactionId")
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	t, err := loadTransaction(transactionID)
	if err == sql.ErrNoRows || (err == nil && t.UserID != userID) {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows, err := database.DB.Query("SELECT filename FROM receipts WHERE transaction_id = ?", transactionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var filenames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		filenames = append(filenames, name)
	}
	rows.Close()

	if _, err := database.DB.Exec("DELETE FROM receipts WHERE transaction_id = ?", transactionID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, name := range filenames {
		filestore.Default.Delete(name)
	}

	if _, err := database.DB.Exec("UPDATE transactions SET has_receipt = 0 WHERE id = ?", transactionID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

// PreviewReceipt returns the URL of the latest receipt image for a
// transaction. Auditors may preview receipts across clubs.
func PreviewReceipt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	transactionID, err := pathID(r, "transactionId")
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	t, err := loadTransaction(transactionID)
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

	var filename string
	err = database.DB.QueryRow(`
		SELECT filename FROM receipts
		WHERE transaction_id = ?
		ORDER BY upload_date DESC, id DESC
		LIMIT 1
	`, transactionID).Scan(&filename)
	if err == sql.ErrNoRows {
		http.Error(w, "no receipt for transaction", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"image_url": mediaURL(filename)})
}

// refreshHasReceipt recomputes the cached flag from the receipts that remain.
func refreshHasReceipt(transactionID int64) error {
	_, err := database.DB.Exec(`
		UPDATE transactions
		SET has_receipt = EXISTS(SELECT 1 FROM receipts WHERE transaction_id = ?)
		WHERE id = ?
	`, transactionID, transactionID)
	return err
}

// mediaURL maps a stored filename to the path the media file server exposes.
func mediaURL(filename string) string {
	return "/media/" + filename
}
