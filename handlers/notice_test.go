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

func newNoticeRequest(t *testing.T, userID, title, content string, attachments map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("title", title)
	writer.WriteField("content", content)
	for name, data := range attachments {
		part, err := writer.CreateFormFile("attachments", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/notices", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return AuthAs(req, userID)
}

func TestCreateNoticeAuditorOnly(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	rr := httptest.NewRecorder()
	Notices(rr, newNoticeRequest(t, TestUserID, "정기 감사 안내", "3월 말까지 증빙을 제출하세요", nil))
	if rr.Code != http.StatusForbidden {
		t.Errorf("member notice creation returned %d, want 403", rr.Code)
	}

	rr = httptest.NewRecorder()
	Notices(rr, newNoticeRequest(t, TestAuditorID, "정기 감사 안내", "3월 말까지 증빙을 제출하세요",
		map[string][]byte{"guide.pdf": []byte("pdf bytes")}))
	if rr.Code != http.StatusOK {
		t.Fatalf("auditor notice creation returned %d: %s", rr.Code, rr.Body.String())
	}

	var created models.Notice
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || len(created.Attachments) != 1 {
		t.Errorf("created notice: %+v", created)
	}

	// Everyone can read the list.
	req := SetupTestAuth(httptest.NewRequest("GET", "/notices", nil))
	rr = httptest.NewRecorder()
	Notices(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("notice list returned %d", rr.Code)
	}
	var list []models.Notice
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "정기 감사 안내" {
		t.Errorf("notice list: %+v", list)
	}
}

func TestNoticeDetailAuthorOnlyEdits(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	rr := httptest.NewRecorder()
	Notices(rr, newNoticeRequest(t, TestAuditorID, "원래 제목", "원래 내용", nil))
	if rr.Code != http.StatusOK {
		t.Fatal("notice creation failed")
	}
	var created models.Notice
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	vars := map[string]string{"id": strconv.FormatInt(created.ID, 10)}

	// A non-author cannot edit.
	req := mux.SetURLVars(AuthAs(httptest.NewRequest("PUT", "/notices/1", jsonBody(map[string]string{
		"title": "변조", "content": "변조",
	})), TestUserID), vars)
	rr = httptest.NewRecorder()
	NoticeDetail(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("non-author edit returned %d, want 403", rr.Code)
	}

	// The author can.
	req = mux.SetURLVars(AuthAs(httptest.NewRequest("PUT", "/notices/1", jsonBody(map[string]string{
		"title": "수정된 제목", "content": "수정된 내용",
	})), TestAuditorID), vars)
	rr = httptest.NewRecorder()
	NoticeDetail(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("author edit returned %d: %s", rr.Code, rr.Body.String())
	}

	req = mux.SetURLVars(SetupTestAuth(httptest.NewRequest("GET", "/notices/1", nil)), vars)
	rr = httptest.NewRecorder()
	NoticeDetail(rr, req)
	var got models.Notice
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Title != "수정된 제목" {
		t.Errorf("title = %q after edit", got.Title)
	}

	// Author-only delete.
	req = mux.SetURLVars(AuthAs(httptest.NewRequest("DELETE", "/notices/1", nil), TestAuditorID), vars)
	rr = httptest.NewRecorder()
	NoticeDetail(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("author delete returned %d", rr.Code)
	}

	req = mux.SetURLVars(SetupTestAuth(httptest.NewRequest("GET", "/notices/1", nil)), vars)
	rr = httptest.NewRecorder()
	NoticeDetail(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("deleted notice still readable: %d", rr.Code)
	}
}

func TestCheckNewNotices(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	hasNew := func() bool {
		t.Helper()
		req := NewAuthenticatedRequest("GET", "/notices/check-new", nil)
		rr := httptest.NewRecorder()
		CheckNewNotices(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("CheckNewNotices returned %d", rr.Code)
		}
		var res map[string]bool
		if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
			t.Fatal(err)
		}
		return res["has_new"]
	}

	if hasNew() {
		t.Error("has_new true with no notices at all")
	}

	rr := httptest.NewRecorder()
	Notices(rr, newNoticeRequest(t, TestAuditorID, "공지", "내용", nil))
	if rr.Code != http.StatusOK {
		t.Fatal("notice creation failed")
	}

	if !hasNew() {
		t.Error("has_new false after a notice was posted")
	}

	req := NewAuthenticatedRequest("POST", "/notices/mark-seen", nil)
	rr = httptest.NewRecorder()
	MarkNoticesSeen(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("MarkNoticesSeen returned %d", rr.Code)
	}

	if hasNew() {
		t.Error("has_new still true after mark-seen")
	}
}
