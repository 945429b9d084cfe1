package handlers

import (
	"encoding/json"
	"net/http"

	"clubledger/database"
	"clubledger/middleware"
)

type calendarEntry struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
}

// CalendarData returns the caller's transactions grouped by date, keyed
// YYYY-MM-DD, for the calendar view.
func CalendarData(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	rows, err := database.DB.Query(`
		SELECT date, type, title, amount
		FROM transactions
		WHERE user_id = ?
		ORDER BY date, id
	`, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	result := map[string][]calendarEntry{}
	for rows.Next() {
		var date string
		var e calendarEntry
		if err := rows.Scan(&date, &e.Type, &e.Title, &e.Amount); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		result[date] = append(result[date], e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
