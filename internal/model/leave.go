package model

// LeaveRequest is a staff or student request for time off.
type LeaveRequest struct {
	StartDate        Date           `json:"start_date"`
	EndDate          Date           `json:"end_date"`
	ApplicantName    string         `json:"applicant_name"`
	LeaveType        string         `json:"leave_type"`
	Reason           string         `json:"reason" binding:"required"`
	Status           ApprovalStatus `json:"status"`
	ReviewerComments string         `json:"reviewer_comments,omitempty"`
	ID               int            `json:"id"`
	ApplicantID      int            `json:"applicant_id"`
	LeaveTypeID      int            `json:"leave_type_id" binding:"required"`
}

// EntityID implements Entity.
func (l LeaveRequest) EntityID() int { return l.ID }

// ApprovalStatus implements Approvable.
func (l LeaveRequest) ApprovalStatus() ApprovalStatus { return l.Status }

// Days is the inclusive length of the leave.
func (l LeaveRequest) Days() int {
	if l.StartDate.IsZero() || l.EndDate.IsZero() || l.EndDate.Before(l.StartDate.Time) {
		return 0
	}
	return int(l.EndDate.Sub(l.StartDate.Time).Hours()/24) + 1
}
