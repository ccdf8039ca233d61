package model

import "github.com/shopspring/decimal"

// TransportEnrollment places a student on a bus route.
type TransportEnrollment struct {
	StartDate   Date            `json:"start_date"`
	EndDate     Date            `json:"end_date"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee"`
	StudentName string          `json:"student_name"`
	RouteName   string          `json:"route_name"`
	StopName    string          `json:"stop_name"`
	Status      string          `json:"status"`
	ID          int             `json:"id"`
	StudentID   int             `json:"student_id" binding:"required"`
	RouteID     int             `json:"route_id" binding:"required"`
}

// EntityID implements Entity.
func (t TransportEnrollment) EntityID() int { return t.ID }

// Active implements Activatable.
func (t TransportEnrollment) Active() bool { return t.Status == "Active" }

// BilledMonths counts the whole or partial months between start and end
// (or through the given day when still active).
func (t TransportEnrollment) BilledMonths(through Date) int {
	if t.StartDate.IsZero() {
		return 0
	}
	end := through
	if !t.EndDate.IsZero() && t.EndDate.Before(through.Time) {
		end = t.EndDate
	}
	if end.Before(t.StartDate.Time) {
		return 0
	}
	months := (end.Year()-t.StartDate.Year())*12 + int(end.Month()) - int(t.StartDate.Month())
	return months + 1
}

// AmountDue is the monthly fee times the billed months.
func (t TransportEnrollment) AmountDue(through Date) decimal.Decimal {
	return t.MonthlyFee.Mul(decimal.NewFromInt(int64(t.BilledMonths(through))))
}
