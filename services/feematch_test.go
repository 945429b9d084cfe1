package services

import (
	"os"
	"testing"
	"time"

	"clubledger/database"
)

const feeTestUserID = "fee-test-user"

func setupFeeDB(t *testing.T) {
	t.Helper()

	os.Setenv("TEST_DB", "1")
	if err := database.InitDB(); err != nil {
		t.Fatalf("initializing test database: %v", err)
	}
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	_, err := database.DB.Exec(`
		INSERT INTO users (id, username, name, role)
		VALUES (?, 'feeuser', 'Fee User', 'member')
	`, feeTestUserID)
	if err != nil {
		t.Fatalf("inserting test user: %v", err)
	}

	t.Cleanup(func() {
		database.DB.Close()
		database.DB = nil
	})
}

func insertIncome(t *testing.T, date string, amount int64, note string) {
	t.Helper()
	_, err := database.DB.Exec(`
		INSERT INTO transactions (user_id, type, title, amount, date, note)
		VALUES (?, 'income', '입금', ?, ?, ?)
	`, feeTestUserID, amount, date, note)
	if err != nil {
		t.Fatalf("inserting income row: %v", err)
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFeeNotePattern(t *testing.T) {
	cases := []struct {
		note  string
		match bool
	}{
		{"2021123456 홍길동", true},
		{"2021123456홍길동", true},
		{"2021123456 김수한무거북이", true},
		{"202112345 홍길동", false},  // 9-digit id
		{"20211234567 홍길동", false}, // 11-digit id
		{"2021123456 홍", false},     // single-character name
		{"2021123456  홍길동", false}, // two spaces
		{"2021123456 홍길동 회비", false},
		{"회비 2021123456 홍길동", false},
		{"2021123456 honggildong", false},
		{"", false},
	}

	for _, c := range cases {
		if got := feeNotePattern.MatchString(c.note); got != c.match {
			t.Errorf("pattern match of %q = %v, want %v", c.note, got, c.match)
		}
	}
}

func TestMatchPaymentsAddsAndMatches(t *testing.T) {
	setupFeeDB(t)

	_, err := database.DB.Exec(`
		INSERT INTO members (user_id, name, student_id, has_paid, joined_at)
		VALUES (?, '홍길동', '2021123456', 0, '2025-03-01')
	`, feeTestUserID)
	if err != nil {
		t.Fatalf("seeding roster: %v", err)
	}

	insertIncome(t, "2025-03-02", 30000, "2021123456 홍길동")
	insertIncome(t, "2025-03-03", 30000, "2021654321 김철수")
	insertIncome(t, "2025-03-04", 30000, "이자 입금")

	res, err := MatchPayments(database.DB, feeTestUserID, day("2025-03-01"), day("2025-03-31"), 30000)
	if err != nil {
		t.Fatalf("MatchPayments returned error: %v", err)
	}

	if res.Matched != 1 {
		t.Errorf("matched = %d, want 1", res.Matched)
	}
	if res.Added != 1 {
		t.Errorf("added = %d, want 1", res.Added)
	}
	if len(res.Ignored) != 1 || res.Ignored[0] != "이자 입금" {
		t.Errorf("ignored = %v, want [이자 입금]", res.Ignored)
	}

	var hasPaid bool
	err = database.DB.QueryRow(`
		SELECT has_paid FROM members WHERE user_id = ? AND student_id = '2021123456'
	`, feeTestUserID).Scan(&hasPaid)
	if err != nil || !hasPaid {
		t.Errorf("existing member not marked paid: has_paid=%v err=%v", hasPaid, err)
	}

	var name string
	err = database.DB.QueryRow(`
		SELECT name, has_paid FROM members WHERE user_id = ? AND student_id = '2021654321'
	`, feeTestUserID).Scan(&name, &hasPaid)
	if err != nil {
		t.Fatalf("auto-created member missing: %v", err)
	}
	if name != "김철수" || !hasPaid {
		t.Errorf("auto-created member: name=%q has_paid=%v, want 김철수 paid", name, hasPaid)
	}
}

func TestMatchPaymentsFiltersByAmountAndWindow(t *testing.T) {
	setupFeeDB(t)

	insertIncome(t, "2025-03-02", 30000, "2021123456 홍길동")
	insertIncome(t, "2025-03-02", 25000, "2021654321 김철수")  // wrong amount
	insertIncome(t, "2025-04-15", 30000, "2021777777 박영희") // outside window

	_, err := database.DB.Exec(`
		INSERT INTO transactions (user_id, type, title, amount, date, note)
		VALUES (?, 'expense', '출금', 30000, '2025-03-02', '2021999999 이몽룡')
	`, feeTestUserID)
	if err != nil {
		t.Fatalf("inserting expense row: %v", err)
	}

	res, err := MatchPayments(database.DB, feeTestUserID, day("2025-03-01"), day("2025-03-31"), 30000)
	if err != nil {
		t.Fatalf("MatchPayments returned error: %v", err)
	}
	if res.Added != 1 || res.Matched != 0 || len(res.Ignored) != 0 {
		t.Errorf("got %+v, want exactly one added member", res)
	}

	var count int
	if err := database.DB.QueryRow(`SELECT COUNT(*) FROM members WHERE user_id = ?`, feeTestUserID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("roster has %d members, want 1", count)
	}
}

func TestMatchPaymentsIsIdempotent(t *testing.T) {
	setupFeeDB(t)

	insertIncome(t, "2025-03-02", 30000, "2021123456 홍길동")

	first, err := MatchPayments(database.DB, feeTestUserID, day("2025-03-01"), day("2025-03-31"), 30000)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if first.Added != 1 || first.Matched != 0 {
		t.Errorf("first pass = %+v, want added=1", first)
	}

	second, err := MatchPayments(database.DB, feeTestUserID, day("2025-03-01"), day("2025-03-31"), 30000)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Added != 0 || second.Matched != 1 {
		t.Errorf("second pass = %+v, want matched=1", second)
	}

	var hasPaid bool
	err = database.DB.QueryRow(`
		SELECT has_paid FROM members WHERE user_id = ? AND student_id = '2021123456'
	`, feeTestUserID).Scan(&hasPaid)
	if err != nil || !hasPaid {
		t.Errorf("has_paid regressed: %v err=%v", hasPaid, err)
	}
}

func TestMatchPaymentsTrimsNoteBeforeMatching(t *testing.T) {
	setupFeeDB(t)

	insertIncome(t, "2025-03-02", 30000, "  2021123456 홍길동  ")

	res, err := MatchPayments(database.DB, feeTestUserID, day("2025-03-01"), day("2025-03-31"), 30000)
	if err != nil {
		t.Fatalf("MatchPayments returned error: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("padded note not matched after trimming: %+v", res)
	}
}
