package model

import "strings"

// Student profile.
type Student struct {
	AdmissionNo   string `json:"admission_no" binding:"required"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	ClassName     string `json:"class_name"`
	Status        string `json:"status"`
	GuardianPhone string `json:"guardian_phone,omitempty"`
	ID            int    `json:"id"`
	ClassID       int    `json:"class_id"`
}

// EntityID implements Entity.
func (s Student) EntityID() int { return s.ID }

// Active implements Activatable.
func (s Student) Active() bool { return strings.EqualFold(s.Status, "Active") }

// FullName joins first and last names.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Teacher profile.
type Teacher struct {
	EmployeeNo string `json:"employee_no" binding:"required"`
	FullName   string `json:"full_name" binding:"required"`
	Email      string `json:"email" binding:"omitempty,email"`
	Phone      string `json:"phone,omitempty"`
	Subject    string `json:"subject"`
	Status     string `json:"status"`
	ID         int    `json:"id"`
}

// EntityID implements Entity.
func (t Teacher) EntityID() int { return t.ID }

// Active implements Activatable.
func (t Teacher) Active() bool { return strings.EqualFold(t.Status, "Active") }
