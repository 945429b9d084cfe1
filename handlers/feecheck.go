package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"clubledger/database"
	"clubledger/middleware"
	"clubledger/services"
)

type feeCheckRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Amount    int64  `json:"amount"`
}

// CheckMembershipPayment reconciles fee payments in a date range against the
// caller's member roster.
func CheckMembershipPayment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	var req feeCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		http.Error(w, "end_date must not be before start_date", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be a positive integer", http.StatusBadRequest)
		return
	}

	result, err := services.MatchPayments(database.DB, userID, start, end, req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
