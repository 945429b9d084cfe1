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

// AuditComments handles GET (list) and POST (create) of audit comments on a
// transaction. Both the owner and auditors can take part in the thread.
func AuditComments(w http.ResponseWriter, r *http.Request) {
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

	switch r.Method {
	case http.MethodGet:
		listComments(w, transactionID)
	case http.MethodPost:
		createComment(w, r, userID, transactionID)
	}
}

func listComments(w http.ResponseWriter, transactionID int64) {
	rows, err := database.DB.Query(`
		SELECT c.id, c.transaction_id, c.user_id, u.name, c.content, COALESCE(c.attachment, ''), c.created_at
		FROM audit_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.transaction_id = ?
		ORDER BY c.created_at, c.id
	`, transactionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	comments := []models.AuditComment{}
	for rows.Next() {
		var c models.AuditComment
		if err := rows.Scan(&c.ID, &c.TransactionID, &c.UserID, &c.UserName, &c.Content, &c.Attachment, &c.CreatedAt); err != nil {
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

// createComment accepts multipart (content + optional attachment file) so a
// question can carry its supporting document.
func createComment(w http.ResponseWriter, r *http.Request, userID string, transactionID int64) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	content := r.FormValue("content")
	if content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	var attachment string
	if file, header, err := r.FormFile("attachment"); err == nil {
		defer file.Close()
		attachment, err = filestore.Default.Save(header.Filename, file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	result, err := database.DB.Exec(`
		INSERT INTO audit_comments (transaction_id, user_id, content, attachment)
		VALUES (?, ?, ?, ?)
	`, transactionID, userID, content, nullable(attachment))
	if err != nil {
		filestore.Default.Delete(attachment)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	c := models.AuditComment{
		ID:            id,
		TransactionID: transactionID,
		UserID:        userID,
		Content:       content,
	}
	if attachment != "" {
		c.AttachmentURL = mediaURL(attachment)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// EditComment updates the text of the caller's own comment.
func EditComment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid comment id", http.StatusBadRequest)
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	result, err := database.DB.Exec(
		"UPDATE audit_comments SET content = ? WHERE id = ? AND user_id = ?", body.Content, id, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

// DeleteComment removes the caller's own comment and its attachment.
func DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid comment id", http.StatusBadRequest)
		return
	}

	var attachment sql.NullString
	err = database.DB.QueryRow(
		"SELECT attachment FROM audit_comments WHERE id = ? AND user_id = ?", id, userID).Scan(&attachment)
	if err == sql.ErrNoRows {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := database.DB.Exec("DELETE FROM audit_comments WHERE id = ?", id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if attachment.Valid {
		filestore.Default.Delete(attachment.String)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}
