package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"clubledger/database"
	"clubledger/middleware"
	"clubledger/statement"
)

// UploadStatement ingests a bank's .xlsx export for the calling user. The
// response reports how many rows were inserted and how many were skipped as
// duplicates; a file that partially parses is a success, not an error.
func UploadStatement(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	bank := r.FormValue("bank")
	if bank == "" {
		http.Error(w, "bank is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := statement.Ingest(database.DB, userID, bank, header.Filename, file)
	if err != nil {
		if errors.Is(err, statement.ErrUnsupportedBank) || errors.Is(err, statement.ErrUnsupportedFile) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error ingesting statement for user %s: %v", userID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
