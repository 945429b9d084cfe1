package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"

	"clubledger/database"
	"clubledger/filestore"
	"clubledger/middleware"
	"clubledger/models"
	"clubledger/security"
)

// Fixed identities available in every test database.
const (
	TestUserID    = "test-user-id"
	TestAuditorID = "test-auditor-id"
)

// SetupTestDB initializes an in-memory database with the full schema, the two
// test users and a throwaway upload directory.
func SetupTestDB() {
	os.Setenv("TEST_DB", "1")
	if err := database.InitDB(); err != nil {
		panic(err)
	}
	if err := database.RunMigrations(); err != nil {
		panic(err)
	}

	_, err := database.DB.Exec(`
		INSERT INTO users (id, username, name, club_name, role)
		VALUES (?, 'testuser', 'Test User', 'chess club', ?),
		       (?, 'testauditor', 'Test Auditor', NULL, ?)
	`, TestUserID, models.RoleMember, TestAuditorID, models.RoleAuditor)
	if err != nil {
		panic(err)
	}

	dir, err := os.MkdirTemp("", "clubledger-test-uploads")
	if err != nil {
		panic(err)
	}
	if err := filestore.Init(dir); err != nil {
		panic(err)
	}

	security.InitializeEncryption("test-only-key")
}

// CleanupTestDB closes the test database connection
func CleanupTestDB() {
	if database.DB != nil {
		database.DB.Close()
		database.DB = nil
	}
	if filestore.Default != nil {
		os.RemoveAll(filestore.Default.BasePath())
	}
}

// SetupTestAuth adds authentication context for the default test user.
func SetupTestAuth(req *http.Request) *http.Request {
	return AuthAs(req, TestUserID)
}

// AuthAs adds authentication context for an arbitrary user ID.
func AuthAs(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

// NewAuthenticatedRequest creates a request with a JSON body and the default
// test user on the context.
func NewAuthenticatedRequest(method, url string, body interface{}) *http.Request {
	var req *http.Request

	if body != nil {
		buf, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, bytes.NewBuffer(buf))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	return SetupTestAuth(req)
}
