package model

// AttendanceRecord is one student's mark for one day.
type AttendanceRecord struct {
	Date        Date   `json:"date"`
	StudentName string `json:"student_name"`
	ClassName   string `json:"class_name"`
	Status      string `json:"status"`
	Remarks     string `json:"remarks,omitempty"`
	ID          int    `json:"id"`
	StudentID   int    `json:"student_id" binding:"required"`
	ClassID     int    `json:"class_id"`
	StatusID    int    `json:"status_id" binding:"required"`
}

// EntityID implements Entity.
func (a AttendanceRecord) EntityID() int { return a.ID }
