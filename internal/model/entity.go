// Package model defines the transient view-models the console displays.
// Records are server-shaped and identified by an integer id; the console
// displays and forwards them but never derives their invariants.
package model

// Entity is any record the console lists and mutates.
type Entity interface {
	EntityID() int
}

// Approvable is implemented by records that move through an approval
// workflow. Only pending records offer approve/reject actions.
type Approvable interface {
	Entity
	ApprovalStatus() ApprovalStatus
}

// Activatable is implemented by records with an active flag, which the
// client-side tab partitions filter on.
type Activatable interface {
	Entity
	Active() bool
}

// ApprovalStatus is the state of an approvable record.
type ApprovalStatus string

// Approval states.
const (
	StatusPending   ApprovalStatus = "Pending"
	StatusApproved  ApprovalStatus = "Approved"
	StatusRejected  ApprovalStatus = "Rejected"
	StatusCompleted ApprovalStatus = "Completed"
)

// IsPending reports whether approve/reject actions apply.
func (s ApprovalStatus) IsPending() bool {
	return s == StatusPending
}

// Decision is the verdict sent with an approve call.
type Decision string

// Decisions.
const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Status maps a decision onto the status the record ends in.
func (d Decision) Status() ApprovalStatus {
	if d == DecisionRejected {
		return StatusRejected
	}
	return StatusApproved
}

// ApprovalRequest is the approve endpoint payload.
type ApprovalRequest struct {
	Decision Decision `json:"decision" binding:"required,oneof=approved rejected"`
	Comments string   `json:"comments"`
}
