package model

// UserType distinguishes console operators.
type UserType string

// Known user types.
const (
	UserAdmin   UserType = "admin"
	UserTeacher UserType = "teacher"
	UserStaff   UserType = "staff"
)

// User is the authenticated operator.
type User struct {
	Type UserType `json:"user_type"`
	ID   int      `json:"id"`
}
