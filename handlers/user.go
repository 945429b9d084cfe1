package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"clubledger/database"
	"clubledger/middleware"
	"clubledger/models"
)

// HealthCheck is the unauthenticated liveness probe.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SyncUser upserts the authenticated user's profile row. The frontend calls
// this right after login so the firebase UID always has a local record.
func SyncUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	var body struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		ClubName string `json:"club_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		body.Name = body.Username
	}

	var existing string
	err := database.DB.QueryRow("SELECT id FROM users WHERE id = ?", userID).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = database.DB.Exec(`
			INSERT INTO users (id, username, name, club_name, role)
			VALUES (?, ?, ?, ?, ?)
		`, userID, body.Username, body.Name, nullable(body.ClubName), models.RoleMember)
	case err == nil:
		_, err = database.DB.Exec(`
			UPDATE users SET username = ?, name = ?, club_name = ? WHERE id = ?
		`, body.Username, body.Name, nullable(body.ClubName), userID)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	user, err := loadUser(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// GetMe returns the authenticated user's profile.
func GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	user, err := loadUser(userID)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func loadUser(userID string) (models.User, error) {
	var u models.User
	var club, lastSeen sql.NullString
	err := database.DB.QueryRow(`
		SELECT id, username, name, club_name, role, last_seen_notice
		FROM users WHERE id = ?
	`, userID).Scan(&u.ID, &u.Username, &u.Name, &club, &u.Role, &lastSeen)
	if err != nil {
		return u, err
	}
	if club.Valid {
		u.ClubName = club.String
	}
	if lastSeen.Valid {
		u.LastSeenNotice = lastSeen.String
	}
	return u, nil
}
