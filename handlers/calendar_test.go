package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCalendarDataGroupsByDate(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	_, err := execTestSQL(`
		INSERT INTO transactions (user_id, type, title, amount, date)
		VALUES (?, 'income', '회비', 30000, '2025-03-02'),
		       (?, 'expense', '다과', 12000, '2025-03-02'),
		       (?, 'expense', '대관료', 50000, '2025-03-15')
	`, TestUserID, TestUserID, TestUserID)
	if err != nil {
		t.Fatal(err)
	}

	req := NewAuthenticatedRequest("GET", "/calendar", nil)
	rr := httptest.NewRecorder()
	CalendarData(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("CalendarData returned %d", rr.Code)
	}

	var result map[string][]calendarEntry
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 dates, got %d: %v", len(result), result)
	}
	if len(result["2025-03-02"]) != 2 {
		t.Errorf("2025-03-02 has %d entries, want 2", len(result["2025-03-02"]))
	}
	if len(result["2025-03-15"]) != 1 || result["2025-03-15"][0].Title != "대관료" {
		t.Errorf("2025-03-15 entries: %v", result["2025-03-15"])
	}
}

func TestCalendarDataScopedToOwner(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	_, err := execTestSQL(`
		INSERT INTO transactions (user_id, type, title, amount, date)
		VALUES (?, 'income', '회비', 30000, '2025-03-02')
	`, TestUserID)
	if err != nil {
		t.Fatal(err)
	}

	req := AuthAs(httptest.NewRequest("GET", "/calendar", nil), TestAuditorID)
	rr := httptest.NewRecorder()
	CalendarData(rr, req)

	var result map[string][]calendarEntry
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result) != 0 {
		t.Errorf("foreign transactions leaked into calendar: %v", result)
	}
}
