package middleware

import (
	"log"
	"net/http"

	"clubledger/services"
)

// RequireAuditor is a middleware that restricts a route to auditor accounts.
func RequireAuditor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserIDFromContext(r)
		if userID == "" {
			http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
			return
		}

		isAuditor, err := services.IsAuditor(userID)
		if err != nil {
			log.Printf("Error checking auditor role for user %s: %v", userID, err)
			http.Error(w, "Failed to check role", http.StatusInternalServerError)
			return
		}

		if !isAuditor {
			http.Error(w, "Forbidden: auditor account required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
