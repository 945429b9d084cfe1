package models

type Member struct {
	ID          int64  `json:"id"`
	UserID      string `json:"-"`
	Name        string `json:"name"`
	StudentID   string `json:"student_id"`
	College     string `json:"college,omitempty"`
	Department  string `json:"department,omitempty"`
	Grade       int    `json:"grade,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"` // 11 digits, no hyphens
	MemberType  string `json:"member_type,omitempty"`
	HasPaid     bool   `json:"has_paid"`
	JoinedAt    string `json:"joined_at"` // YYYY-MM-DD, set at creation
}
