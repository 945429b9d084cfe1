package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"clubledger/models"

	"github.com/gorilla/mux"
)

func newCommentRequest(t *testing.T, userID string, transactionID int64, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("content", content)
	writer.Close()

	req := httptest.NewRequest("POST", "/audit/comments/1", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = AuthAs(req, userID)
	return mux.SetURLVars(req, map[string]string{"transactionId": strconv.FormatInt(transactionID, 10)})
}

func TestAuditCommentThread(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "expense",
		"title":  "다과",
		"amount": 12000,
		"date":   "2025-03-10",
	})

	// Auditor opens the thread, the owner replies.
	rr := httptest.NewRecorder()
	AuditComments(rr, newCommentRequest(t, TestAuditorID, created.ID, "영수증 금액이 다릅니다"))
	if rr.Code != http.StatusOK {
		t.Fatalf("auditor comment returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	AuditComments(rr, newCommentRequest(t, TestUserID, created.ID, "수정해서 다시 올리겠습니다"))
	if rr.Code != http.StatusOK {
		t.Fatalf("owner reply returned %d: %s", rr.Code, rr.Body.String())
	}

	vars := map[string]string{"transactionId": strconv.FormatInt(created.ID, 10)}
	req := mux.SetURLVars(NewAuthenticatedRequest("GET", "/audit/comments/1", nil), vars)
	rr = httptest.NewRecorder()
	AuditComments(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("comment list returned %d", rr.Code)
	}

	var comments []models.AuditComment
	if err := json.NewDecoder(rr.Body).Decode(&comments); err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 {
		t.Fatalf("thread has %d comments, want 2", len(comments))
	}
	if comments[0].Content != "영수증 금액이 다릅니다" || comments[0].UserName != "Test Auditor" {
		t.Errorf("first comment: %+v", comments[0])
	}
}

func TestCommentThreadBlockedForStrangers(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "expense",
		"title":  "다과",
		"amount": 12000,
		"date":   "2025-03-10",
	})

	_, err := execTestSQL(`INSERT INTO users (id, username, name, role) VALUES ('stranger', 'stranger', 'Stranger', 'member')`)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	AuditComments(rr, newCommentRequest(t, "stranger", created.ID, "끼어들기"))
	if rr.Code != http.StatusForbidden {
		t.Errorf("stranger comment returned %d, want 403", rr.Code)
	}
}

func TestEditAndDeleteOwnCommentOnly(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "expense",
		"title":  "다과",
		"amount": 12000,
		"date":   "2025-03-10",
	})

	rr := httptest.NewRecorder()
	AuditComments(rr, newCommentRequest(t, TestAuditorID, created.ID, "원래 내용"))
	if rr.Code != http.StatusOK {
		t.Fatal("comment creation failed")
	}
	var c models.AuditComment
	if err := json.NewDecoder(rr.Body).Decode(&c); err != nil {
		t.Fatal(err)
	}

	vars := map[string]string{"id": strconv.FormatInt(c.ID, 10)}

	// The owner of the transaction is not the author and cannot edit it.
	req := mux.SetURLVars(NewAuthenticatedRequest("PUT", "/audit/comment/1", map[string]string{
		"content": "변조",
	}), vars)
	rr = httptest.NewRecorder()
	EditComment(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("non-author edit returned %d, want 404", rr.Code)
	}

	// The author can.
	req = mux.SetURLVars(AuthAs(httptest.NewRequest("PUT", "/audit/comment/1", jsonBody(map[string]string{
		"content": "수정된 내용",
	})), TestAuditorID), vars)
	rr = httptest.NewRecorder()
	EditComment(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("author edit returned %d: %s", rr.Code, rr.Body.String())
	}

	req = mux.SetURLVars(AuthAs(httptest.NewRequest("DELETE", "/audit/comment/1", nil), TestAuditorID), vars)
	rr = httptest.NewRecorder()
	DeleteComment(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("author delete returned %d", rr.Code)
	}

	req = mux.SetURLVars(AuthAs(httptest.NewRequest("DELETE", "/audit/comment/1", nil), TestAuditorID), vars)
	rr = httptest.NewRecorder()
	DeleteComment(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("deleting a deleted comment returned %d, want 404", rr.Code)
	}
}
