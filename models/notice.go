package models

type Notice struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	AuthorID    string             `json:"-"`
	AuthorName  string             `json:"author_name"`
	CreatedAt   string             `json:"created_at"`
	Attachments []NoticeAttachment `json:"attachments,omitempty"`
}

type NoticeAttachment struct {
	ID           int64  `json:"id"`
	NoticeID     int64  `json:"notice"`
	Filename     string `json:"-"`
	OriginalName string `json:"original_name"`
	UploadedAt   string `json:"uploaded_at"`
	FileURL      string `json:"file_url"`
}

type AuditComment struct {
	ID            int64  `json:"id"`
	TransactionID int64  `json:"transaction"`
	UserID        string `json:"-"`
	UserName      string `json:"user_name"`
	Content       string `json:"content"`
	Attachment    string `json:"-"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	CreatedAt     string `json:"created_at"`

	// Populated on the comments-summary listing so a comment can be placed
	// without loading its transaction.
	TransactionTitle string `json:"transaction_title,omitempty"`
	ClubName         string `json:"club_name,omitempty"`
}
