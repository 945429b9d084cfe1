package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"clubledger/database"
	"clubledger/filestore"
	"clubledger/models"

	"github.com/gorilla/mux"
)

func execTestSQL(query string, args ...any) (sql.Result, error) {
	return database.DB.Exec(query, args...)
}

func jsonBody(v interface{}) io.Reader {
	buf, _ := json.Marshal(v)
	return bytes.NewReader(buf)
}

func addTestTransaction(t *testing.T, body map[string]interface{}) models.Transaction {
	t.Helper()

	req := NewAuthenticatedRequest("POST", "/transactions", body)
	rr := httptest.NewRecorder()
	AddTransaction(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("AddTransaction returned %d: %s", rr.Code, rr.Body.String())
	}

	var created models.Transaction
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return created
}

func withID(req *http.Request, id int64) *http.Request {
	return mux.SetURLVars(req, map[string]string{"id": strconv.FormatInt(id, 10)})
}

func TestAddAndGetTransactions(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "expense",
		"title":  "보드게임 구입",
		"amount": 45000,
		"date":   "2025-03-10",
		"note":   "정기 모임 준비",
	})
	if created.ID == 0 {
		t.Error("created transaction has no id")
	}
	if created.HasReceipt {
		t.Error("new transaction must not have a receipt")
	}
	if created.ReviewStatus != models.ReviewNotReviewed {
		t.Errorf("review_status = %q, want %q", created.ReviewStatus, models.ReviewNotReviewed)
	}

	req := NewAuthenticatedRequest("GET", "/transactions", nil)
	rr := httptest.NewRecorder()
	GetTransactions(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("GetTransactions returned %d", rr.Code)
	}
	var list []models.Transaction
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "보드게임 구입" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestAddTransactionValidation(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	cases := []map[string]interface{}{
		{"type": "transfer", "title": "x", "amount": 100, "date": "2025-03-10"},
		{"type": "income", "title": "", "amount": 100, "date": "2025-03-10"},
		{"type": "income", "title": "x", "amount": -1, "date": "2025-03-10"},
		{"type": "income", "title": "x", "amount": 100, "date": "03/10/2025"},
	}

	for i, body := range cases {
		req := NewAuthenticatedRequest("POST", "/transactions", body)
		rr := httptest.NewRecorder()
		AddTransaction(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("case %d: got status %d, want 400", i, rr.Code)
		}
	}
}

func TestGetTransactionPermissions(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "income",
		"title":  "회비",
		"amount": 30000,
		"date":   "2025-03-02",
	})

	// Owner can read it.
	req := withID(NewAuthenticatedRequest("GET", "/transactions/1", nil), created.ID)
	rr := httptest.NewRecorder()
	GetTransaction(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("owner read returned %d", rr.Code)
	}

	// Auditors can read across owners.
	req = withID(AuthAs(httptest.NewRequest("GET", "/transactions/1", nil), TestAuditorID), created.ID)
	rr = httptest.NewRecorder()
	GetTransaction(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("auditor read returned %d", rr.Code)
	}

	// An unrelated member cannot.
	_, err := execTestSQL(`INSERT INTO users (id, username, name, role) VALUES ('stranger', 'stranger', 'Stranger', 'member')`)
	if err != nil {
		t.Fatal(err)
	}
	req = withID(AuthAs(httptest.NewRequest("GET", "/transactions/1", nil), "stranger"), created.ID)
	rr = httptest.NewRecorder()
	GetTransaction(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("stranger read returned %d, want 403", rr.Code)
	}
}

func TestUpdateTransactionPartial(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "expense",
		"title":  "다과",
		"amount": 12000,
		"date":   "2025-03-10",
		"note":   "원래 메모",
	})

	req := withID(NewAuthenticatedRequest("PATCH", "/transactions/1", map[string]interface{}{
		"amount": 15000,
	}), created.ID)
	rr := httptest.NewRecorder()
	UpdateTransaction(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateTransaction returned %d: %s", rr.Code, rr.Body.String())
	}
	var updated models.Transaction
	if err := json.NewDecoder(rr.Body).Decode(&updated); err != nil {
		t.Fatal(err)
	}
	if updated.Amount != 15000 {
		t.Errorf("amount = %d, want 15000", updated.Amount)
	}
	if updated.Title != "다과" || updated.Note != "원래 메모" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateTransactionForbiddenForNonOwner(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "expense",
		"title":  "다과",
		"amount": 12000,
		"date":   "2025-03-10",
	})

	// Auditors can view but not edit.
	req := withID(AuthAs(httptest.NewRequest("PATCH", "/transactions/1", jsonBody(map[string]interface{}{
		"amount": 1,
	})), TestAuditorID), created.ID)
	rr := httptest.NewRecorder()
	UpdateTransaction(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("auditor edit returned %d, want 403", rr.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := addTestTransaction(t, map[string]interface{}{
		"type":   "expense",
		"title":  "다과",
		"amount": 12000,
		"date":   "2025-03-10",
	})

	req := withID(NewAuthenticatedRequest("DELETE", "/transactions/1", nil), created.ID)
	rr := httptest.NewRecorder()
	DeleteTransaction(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("DeleteTransaction returned %d", rr.Code)
	}

	req = withID(NewAuthenticatedRequest("GET", "/transactions/1", nil), created.ID)
	rr = httptest.NewRecorder()
	GetTransaction(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("deleted transaction still readable: %d", rr.Code)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	req := withID(NewAuthenticatedRequest("GET", "/transactions/999", nil), 999)
	rr := httptest.NewRecorder()
	GetTransaction(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}

func newTransactionWithReceiptRequest(t *testing.T) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"type":   "expense",
		"title":  "다과",
		"amount": "12000",
		"date":   "2025-03-10",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	part, err := writer.CreateFormFile("image", "receipt.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake image bytes"))
	writer.Close()

	req := httptest.NewRequest("POST", "/transactions/with-receipt", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return SetupTestAuth(req)
}

func TestCreateTransactionWithReceipt(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	rr := httptest.NewRecorder()
	CreateTransactionWithReceipt(rr, newTransactionWithReceiptRequest(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("create with receipt returned %d: %s", rr.Code, rr.Body.String())
	}

	var created models.Transaction
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if !created.HasReceipt {
		t.Error("has_receipt not set on created transaction")
	}

	var count int
	if err := database.DB.QueryRow(`SELECT COUNT(*) FROM receipts WHERE transaction_id = ?`, created.ID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("got %d receipt rows, want 1", count)
	}
}

func TestCreateTransactionWithReceiptRollsBackOnReceiptFailure(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	// Break the receipts INSERT so the handler fails after the transaction
	// row and the file already exist.
	if _, err := execTestSQL(`ALTER TABLE receipts RENAME TO receipts_broken`); err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	CreateTransactionWithReceipt(rr, newTransactionWithReceiptRequest(t))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", rr.Code)
	}

	var count int
	if err := database.DB.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("%d transaction rows survived the failed create", count)
	}

	entries, err := os.ReadDir(filestore.Default.BasePath())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d files survived the failed create", len(entries))
	}
}
