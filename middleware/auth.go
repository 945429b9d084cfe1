package middleware

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Define context keys
type contextKey string

const UserIDKey contextKey = "user_id"

var firebaseAuth *auth.Client

// InitializeFirebase initializes the Firebase Admin SDK used to verify ID
// tokens. Credentials come from FIREBASE_SERVICE_ACCOUNT_JSON or the base64
// variant; with neither set, auth checks run in development mode.
func InitializeFirebase() error {
	credentialsJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")

	if credentialsJSON == "" {
		if b64 := os.Getenv("FIREBASE_SERVICE_ACCOUNT_BASE64"); b64 != "" {
			credBytes, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return fmt.Errorf("decoding base64 Firebase credentials: %w", err)
			}
			credentialsJSON = string(credBytes)
		}
	}

	if credentialsJSON == "" {
		log.Println("No Firebase credentials found, running in development mode with auth checks disabled")
		return nil
	}

	opt := option.WithCredentialsJSON([]byte(credentialsJSON))
	config := &firebase.Config{ProjectID: os.Getenv("FIREBASE_PROJECT_ID")}

	app, err := firebase.NewApp(context.Background(), config, opt)
	if err != nil {
		return fmt.Errorf("initializing Firebase app: %w", err)
	}

	firebaseAuth, err = app.Auth(context.Background())
	if err != nil {
		return fmt.Errorf("getting Firebase Auth client: %w", err)
	}

	log.Println("Firebase Admin SDK initialized")
	return nil
}

// AuthMiddleware verifies Firebase ID tokens from the Authorization header and
// puts the verified user ID on the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for OPTIONS requests (CORS preflight)
		if r.Method == "OPTIONS" {
			next.ServeHTTP(w, r)
			return
		}

		// If Firebase auth is not initialized, skip token verification (dev mode)
		if firebaseAuth == nil {
			ctx := context.WithValue(r.Context(), UserIDKey, "dev-user")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		idToken := extractToken(r.Header.Get("Authorization"))
		if idToken == "" {
			http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
			return
		}

		token, err := verifyToken(r.Context(), idToken)
		if err != nil {
			log.Printf("Error verifying token: %v", err)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, token.UID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken gets the bearer token from the Authorization header
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, "Bearer ")
	if len(parts) != 2 {
		return ""
	}

	return parts[1]
}

func verifyToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if firebaseAuth == nil {
		return nil, errors.New("Firebase auth client not initialized")
	}

	token, err := firebaseAuth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("error verifying ID token: %w", err)
	}

	return token, nil
}

// GetUserIDFromContext retrieves the user ID from the request context
func GetUserIDFromContext(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}
