package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"clubledger/database"
	"clubledger/filestore"
	"clubledger/middleware"
	"clubledger/models"
)

// EvidenceFiles handles GET (list) and POST (upload) for a transaction's
// evidence files.
func EvidenceFiles(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	transactionID, err := pathID(r, "id")
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

	switch r.Method {
	case http.MethodGet:
		if !canViewTransaction(userID, t.UserID) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		listEvidenceFiles(w, transactionID)
	case http.MethodPost:
		if t.UserID != userID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		uploadEvidenceFile(w, r, transactionID)
	}
}

func listEvidenceFiles(w http.ResponseWriter, transactionID int64) {
	rows, err := database.DB.Query(`
		SELECT id, transaction_id, filename, original_name, uploaded_at
		FROM evidence_files
		WHERE transaction_id = ?
		ORDER BY uploaded_at DESC, id DESC
	`, transactionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	files := []models.EvidenceFile{}
	for rows.Next() {
		var f models.EvidenceFile
		if err := rows.Scan(&f.ID, &f.TransactionID, &f.Filename, &f.OriginalName, &f.UploadedAt); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		f.FileURL = mediaURL(f.Filename)
		files = append(files, f)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

func uploadEvidenceFile(w http.ResponseWriter, r *http.Request, transactionID int64) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename, err := filestore.Default.Save(header.Filename, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := database.DB.Exec(`
		INSERT INTO evidence_files (transaction_id, filename, original_name)
		VALUES (?, ?, ?)
	`, transactionID, filename, header.Filename)
	if err != nil {
		filestore.Default.Delete(filename)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	f := models.EvidenceFile{
		ID:            id,
		TransactionID: transactionID,
		OriginalName:  header.Filename,
		FileURL:       mediaURL(filename),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

// DeleteEvidence removes one evidence file from a transaction the caller owns.
func DeleteEvidence(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	transactionID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	evidenceID, err := pathID(r, "evidenceId")
	if err != nil {
		http.Error(w, "invalid evidence id", http.StatusBadRequest)
		return
	}

	var filename string
	err = database.DB.QueryRow(`
		SELECT e.filename
		FROM evidence_files e
		JOIN transactions t ON t.id = e.transaction_id
		WHERE e.id = ? AND e.transaction_id = ? AND t.user_id = ?
	`, evidenceID, transactionID, userID).Scan(&filename)
	if err == sql.ErrNoRows {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := database.DB.Exec("DELETE FROM evidence_files WHERE id = ?", evidenceID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	filestore.Default.Delete(filename)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}
