package handlers

import (
	"encoding/json"
	"net/http"

	"clubledger/database"
	"clubledger/middleware"
	"clubledger/services"

	"github.com/gorilla/mux"
)

// MyClubStatistics returns the review-progress counts of the caller's own
// club, so a treasurer can track the audit without auditor access.
func MyClubStatistics(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	club, err := services.GetClubName(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats, err := services.ClubReviewProgress(database.DB, club)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// MyClubMonthlySummary returns the caller's club income and expense totals
// per month.
func MyClubMonthlySummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	club, err := services.GetClubName(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeMonthlySummary(w, club)
}

// MonthlyExpenseByClub returns the monthly income/expense totals of a named
// club. Open to any authenticated user; auditors use it for the club drill-in
// charts.
func MonthlyExpenseByClub(w http.ResponseWriter, r *http.Request) {
	club := mux.Vars(r)["club"]
	if club == "" {
		http.Error(w, "club is required", http.StatusBadRequest)
		return
	}

	writeMonthlySummary(w, club)
}

func writeMonthlySummary(w http.ResponseWriter, club string) {
	months, err := services.MonthlySummary(database.DB, club)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(months)
}
