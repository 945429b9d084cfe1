package models

type Transaction struct {
	ID           int64  `json:"id"`
	UserID       string `json:"-"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Amount       int64  `json:"amount"`
	Date         string `json:"date"` // YYYY-MM-DD
	Note         string `json:"note"`
	Description  string `json:"description,omitempty"`
	HasReceipt   bool   `json:"has_receipt"`
	ReviewStatus string `json:"review_status"`

	// Populated on audit listings so auditors can tell clubs apart.
	ClubName string `json:"club_name,omitempty"`
}

type Receipt struct {
	ID            int64  `json:"id"`
	TransactionID int64  `json:"transaction"`
	Filename      string `json:"-"`
	OriginalName  string `json:"original_name"`
	UploadDate    string `json:"upload_date"`
	ImageURL      string `json:"image_url"`
}

type EvidenceFile struct {
	ID            int64  `json:"id"`
	TransactionID int64  `json:"transaction"`
	Filename      string `json:"-"`
	OriginalName  string `json:"original_name"`
	UploadedAt    string `json:"uploaded_at"`
	FileURL       string `json:"file_url"`
}
