package models

type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ClubName       string `json:"club_name,omitempty"`
	Role           string `json:"role"` // member or auditor
	LastSeenNotice string `json:"last_seen_notice,omitempty"`
}
