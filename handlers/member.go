package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"clubledger/database"
	"clubledger/middleware"
	"clubledger/models"
	"clubledger/security"
)

var phonePattern = regexp.MustCompile(`^\d{11}$`)

func GetMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	rows, err := database.DB.Query(`
		SELECT id, user_id, name, student_id, COALESCE(college, ''), COALESCE(department, ''),
		       COALESCE(grade, 0), COALESCE(phone_number, ''), COALESCE(member_type, ''),
		       has_paid, joined_at
		FROM members
		WHERE user_id = ?
		ORDER BY student_id
	`, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		members = append(members, m)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(members)
}

func CreateMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)

	var m models.Member
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if m.Name == "" || m.StudentID == "" {
		http.Error(w, "name and student_id are required", http.StatusBadRequest)
		return
	}
	if err := validateMember(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.UserID = userID
	m.JoinedAt = time.Now().Format(dateLayout)

	phone, err := encryptPhone(m.PhoneNumber)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := database.DB.Exec(`
		INSERT INTO members (user_id, name, student_id, college, department, grade, phone_number, member_type, has_paid, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.UserID, m.Name, m.StudentID, nullable(m.College), nullable(m.Department),
		nullableInt(m.Grade), nullable(phone), nullable(m.MemberType), m.HasPaid, m.JoinedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			http.Error(w, "a member with this student_id already exists", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.ID, _ = result.LastInsertId()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

func GetMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}

	m, err := loadMember(id, userID)
	if err == sql.ErrNoRows {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

type memberUpdate struct {
	Name        *string `json:"name"`
	College     *string `json:"college"`
	Department  *string `json:"department"`
	Grade       *int    `json:"grade"`
	PhoneNumber *string `json:"phone_number"`
	MemberType  *string `json:"member_type"`
	HasPaid     *bool   `json:"has_paid"`
	JoinedAt    *string `json:"joined_at"`
}

func UpdateMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}

	m, err := loadMember(id, userID)
	if err == sql.ErrNoRows {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var upd memberUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.College != nil {
		m.College = *upd.College
	}
	if upd.Department != nil {
		m.Department = *upd.Department
	}
	if upd.Grade != nil {
		m.Grade = *upd.Grade
	}
	if upd.PhoneNumber != nil {
		m.PhoneNumber = *upd.PhoneNumber
	}
	if upd.MemberType != nil {
		m.MemberType = *upd.MemberType
	}
	if upd.HasPaid != nil {
		m.HasPaid = *upd.HasPaid
	}
	if upd.JoinedAt != nil {
		// Bad dates are ignored rather than rejected; the roster import UI
		// sends empty strings for untouched rows.
		if _, err := time.Parse(dateLayout, *upd.JoinedAt); err == nil {
			m.JoinedAt = *upd.JoinedAt
		}
	}

	if err := validateMember(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	phone, err := encryptPhone(m.PhoneNumber)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, err = database.DB.Exec(`
		UPDATE members
		SET name = ?, college = ?, department = ?, grade = ?, phone_number = ?, member_type = ?, has_paid = ?, joined_at = ?
		WHERE id = ? AND user_id = ?
	`, m.Name, nullable(m.College), nullable(m.Department), nullableInt(m.Grade),
		nullable(phone), nullable(m.MemberType), m.HasPaid, m.JoinedAt, id, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

func DeleteMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}

	result, err := database.DB.Exec("DELETE FROM members WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
}

func validateMember(m *models.Member) error {
	if m.PhoneNumber != "" && !phonePattern.MatchString(m.PhoneNumber) {
		return errInvalid("phone_number must be 11 digits without hyphens")
	}
	if m.MemberType != "" && !models.ValidMemberType(m.MemberType) {
		return errInvalid("member_type must be undergrad, leave or grad")
	}
	if m.Grade < 0 {
		return errInvalid("grade must not be negative")
	}
	return nil
}

func loadMember(id int64, userID string) (models.Member, error) {
	row := database.DB.QueryRow(`
		SELECT id, user_id, name, student_id, COALESCE(college, ''), COALESCE(department, ''),
		       COALESCE(grade, 0), COALESCE(phone_number, ''), COALESCE(member_type, ''),
		       has_paid, joined_at
		FROM members
		WHERE id = ? AND user_id = ?
	`, id, userID)
	return scanMember(row)
}

func scanMember(row rowScanner) (models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.StudentID, &m.College, &m.Department,
		&m.Grade, &m.PhoneNumber, &m.MemberType, &m.HasPaid, &m.JoinedAt)
	if err != nil {
		return m, err
	}
	m.PhoneNumber = decryptPhone(m.PhoneNumber)
	return m, nil
}

// Phone numbers are PII and stored encrypted. Plaintext never reaches the
// database; decryption failures surface as an empty value rather than an
// error so a rotated key cannot lock rosters out.
func encryptPhone(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}
	return security.Encrypt(phone)
}

func decryptPhone(stored string) string {
	if stored == "" {
		return ""
	}
	plain, err := security.Decrypt(stored)
	if err != nil {
		log.Printf("Error decrypting phone number: %v", err)
		return ""
	}
	return plain
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
