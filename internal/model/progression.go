package model

// Session is an academic year.
type Session struct {
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	Name      string `json:"name"`
	ID        int    `json:"id"`
	IsCurrent bool   `json:"is_current"`
}

// Class is a grade level; Order sorts classes from lowest to highest.
type Class struct {
	Name  string `json:"name"`
	ID    int    `json:"id"`
	Order int    `json:"order"`
}

// ProgressionAction is what happens to a student at year end.
type ProgressionAction string

// Progression actions.
const (
	ActionPromoted ProgressionAction = "Promoted"
	ActionRetained ProgressionAction = "Retained"
	ActionDemoted  ProgressionAction = "Demoted"
)

// Valid reports whether a is a known action.
func (a ProgressionAction) Valid() bool {
	switch a {
	case ActionPromoted, ActionRetained, ActionDemoted:
		return true
	}
	return false
}

// Candidate is a student eligible for progression.
type Candidate struct {
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	StudentID int    `json:"student_id"`
	ClassID   int    `json:"class_id"`
}

// PreviewRequest asks which students move between two sessions.
type PreviewRequest struct {
	FromSessionID int `json:"from_session_id" binding:"required"`
	ToSessionID   int `json:"to_session_id" binding:"required"`
}

// PreviewResponse lists the candidates.
type PreviewResponse struct {
	Students []Candidate `json:"students"`
}

// PlannedMove is one confirmed student action.
type PlannedMove struct {
	Action        ProgressionAction `json:"action"`
	StudentID     int               `json:"student_id"`
	TargetClassID int               `json:"target_class_id"`
}

// ExecuteRequest commits the plan.
type ExecuteRequest struct {
	Actions       []PlannedMove `json:"actions" binding:"required,min=1"`
	FromSessionID int           `json:"from_session_id" binding:"required"`
	ToSessionID   int           `json:"to_session_id" binding:"required"`
}

// ProgressionFailure explains why one student was not moved.
type ProgressionFailure struct {
	Reason    string `json:"reason"`
	StudentID int    `json:"student_id"`
}

// ProgressionResult summarizes an execution.
type ProgressionResult struct {
	Failures  []ProgressionFailure `json:"failures"`
	Processed int                  `json:"processed"`
	Promoted  int                  `json:"promoted"`
	Retained  int                  `json:"retained"`
	Demoted   int                  `json:"demoted"`
}
