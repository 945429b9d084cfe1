package models

// Transaction types
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Review statuses assigned by auditors
const (
	ReviewNotReviewed = "not_reviewed"
	ReviewInProgress  = "in_progress"
	ReviewCompleted   = "completed"
)

// Member types
const (
	MemberUndergrad = "undergrad"
	MemberLeave     = "leave"
	MemberGrad      = "grad"
)

// User roles
const (
	RoleMember  = "member"
	RoleAuditor = "auditor"
)

// ValidReviewStatus reports whether s is a known review status.
func ValidReviewStatus(s string) bool {
	return s == ReviewNotReviewed || s == ReviewInProgress || s == ReviewCompleted
}

// ValidMemberType reports whether s is a known member type.
func ValidMemberType(s string) bool {
	return s == MemberUndergrad || s == MemberLeave || s == MemberGrad
}

// ValidTransactionType reports whether s is income or expense.
func ValidTransactionType(s string) bool {
	return s == TypeIncome || s == TypeExpense
}
