package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"clubledger/database"
	"clubledger/filestore"
	"clubledger/middleware"
	"clubledger/models"
	"clubledger/services"
)

// Notices handles GET (list, all users) and POST (create, auditors only).
func Notices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listNotices(w)
	case http.MethodPost:
		createNotice(w, r)
	}
}

func listNotices(w http.ResponseWriter) {
	rows, err := database.DB.Query(`
		SELECT n.id, n.title, n.content, COALESCE(n.author_id, ''), COALESCE(u.name, ''), n.created_at
		FROM notices n
		LEFT JOIN users u ON u.id = n.author_id
		ORDER BY n.created_at DESC, n.id DESC
	`)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	notices := []models.Notice{}
	for rows.Next() {
		var n models.Notice
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.AuthorID, &n.AuthorName, &n.CreatedAt); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		notices = append(notices, n)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notices)
}

func createNotice(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	isAuditor, err := services.IsAuditor(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !isAuditor {
		http.Error(w, "Forbidden: auditor account required", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	content := r.FormValue("content")
	if title == "" || content == "" {
		http.Error(w, "title and content are required", http.StatusBadRequest)
		return
	}

	result, err := database.DB.Exec(
		"INSERT INTO notices (title, content, author_id) VALUES (?, ?, ?)", title, content, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	noticeID, _ := result.LastInsertId()

	n := models.Notice{ID: noticeID, Title: title, Content: content, AuthorID: userID}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["attachments"] {
			file, err := header.Open()
			if err != nil {
				log.Printf("Error opening notice attachment: %v", err)
				continue
			}
			filename, err := filestore.Default.Save(header.Filename, file)
			file.Close()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			_, err = database.DB.Exec(`
				INSERT INTO notice_attachments (notice_id, filename, original_name)
				VALUES (?, ?, ?)
			`, noticeID, filename, header.Filename)
			if err != nil {
				filestore.Default.Delete(filename)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			n.Attachments = append(n.Attachments, models.NoticeAttachment{
				NoticeID:     noticeID,
				OriginalName: header.Filename,
				FileURL:      mediaURL(filename),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(n)
}

// NoticeDetail handles GET, PUT and DELETE for a single notice. Edits and
// deletes are restricted to the notice's author.
func NoticeDetail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid notice id", http.StatusBadRequest)
		return
	}

	var n models.Notice
	err = database.DB.QueryRow(`
		SELECT n.id, n.title, n.content, COALESCE(n.author_id, ''), COALESCE(u.name, ''), n.created_at
		FROM notices n
		LEFT JOIN users u ON u.id = n.author_id
		WHERE n.id = ?
	`, id).Scan(&n.ID, &n.Title, &n.Content, &n.AuthorID, &n.AuthorName, &n.CreatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "Notice not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		attachments, err := noticeAttachments(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		n.Attachments = attachments
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(n)

	case http.MethodPut:
		if n.AuthorID != userID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		var body struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.Title == "" || body.Content == "" {
			http.Error(w, "title and content are required", http.StatusBadRequest)
			return
		}
		if _, err := database.DB.Exec(
			"UPDATE notices SET title = ?, content = ? WHERE id = ?", body.Title, body.Content, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		n.Title, n.Content = body.Title, body.Content
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(n)

	case http.MethodDelete:
		if n.AuthorID != userID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		attachments, err := noticeAttachments(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := database.DB.Exec("DELETE FROM notices WHERE id = ?", id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, a := range attachments {
			filestore.Default.Delete(a.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

// CheckNewNotices reports whether any notice is newer than the caller's
// last-seen timestamp.
func CheckNewNotices(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	var lastSeen sql.NullString
	err := database.DB.QueryRow("SELECT last_seen_notice FROM users WHERE id = ?", userID).Scan(&lastSeen)
	if err != nil && err != sql.ErrNoRows {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var hasNew bool
	if lastSeen.Valid {
		err = database.DB.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM notices WHERE created_at > ?)", lastSeen.String).Scan(&hasNew)
	} else {
		err = database.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM notices)").Scan(&hasNew)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"has_new": hasNew})
}

// MarkNoticesSeen stamps the caller's last-seen timestamp to now.
func MarkNoticesSeen(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	_, err := database.DB.Exec(
		"UPDATE users SET last_seen_notice = ? WHERE id = ?",
		time.Now().UTC().Format("2006-01-02 15:04:05"), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func noticeAttachments(noticeID int64) ([]models.NoticeAttachment, error) {
	rows, err := database.DB.Query(`
		SELECT id, notice_id, filename, original_name, uploaded_at
		FROM notice_attachments
		WHERE notice_id = ?
		ORDER BY id
	`, noticeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := []models.NoticeAttachment{}
	for rows.Next() {
		var a models.NoticeAttachment
		if err := rows.Scan(&a.ID, &a.NoticeID, &a.Filename, &a.OriginalName, &a.UploadedAt); err != nil {
			return nil, err
		}
		a.FileURL = mediaURL(a.Filename)
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
