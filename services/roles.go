package services

import (
	"database/sql"

	"clubledger/database"
	"clubledger/models"
)

// GetUserRole gets the role of a user. Unknown or unset roles default to
// plain members.
func GetUserRole(userID string) (string, error) {
	var role sql.NullString
	err := database.DB.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role)
	if err == sql.ErrNoRows {
		return models.RoleMember, nil
	}
	if err != nil {
		return "", err
	}

	if !role.Valid || role.String == "" {
		return models.RoleMember, nil
	}

	return role.String, nil
}

// IsAuditor checks if a user is an auditor account
func IsAuditor(userID string) (bool, error) {
	role, err := GetUserRole(userID)
	if err != nil {
		return false, err
	}

	return role == models.RoleAuditor, nil
}

// GetClubName returns the club a user's books belong to, or "" when unset.
func GetClubName(userID string) (string, error) {
	var club sql.NullString
	err := database.DB.QueryRow("SELECT club_name FROM users WHERE id = ?", userID).Scan(&club)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !club.Valid {
		return "", nil
	}
	return club.String, nil
}
