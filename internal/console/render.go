package console

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/schoolctl/internal/model"
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func renderAttendance(a model.AttendanceRecord, label labeler) []string {
	status := a.Status
	if status == "" && a.StatusID != 0 {
		status = label(model.OptionStatuses, a.StatusID)
	}
	return []string{a.Date.String(), a.StudentName, a.ClassName, orDash(status), orDash(a.Remarks)}
}

func renderLeave(l model.LeaveRequest, label labeler) []string {
	typ := l.LeaveType
	if typ == "" && l.LeaveTypeID != 0 {
		typ = label(model.OptionCategories, l.LeaveTypeID)
	}
	return []string{
		l.StartDate.String(), l.EndDate.String(), strconv.Itoa(l.Days()),
		l.ApplicantName, orDash(typ), string(l.Status),
	}
}

func renderPricing(p model.PricingRow, label labeler) []string {
	category := p.CategoryName
	if category == "" && p.CategoryID != 0 {
		category = label(model.OptionCategories, p.CategoryID)
	}
	return []string{p.ItemName, orDash(category), orDash(p.SessionYear), money(p.UnitPrice), yesNo(p.IsActive)}
}

func renderPurchase(p model.Purchase, _ labeler) []string {
	return []string{
		p.PurchasedAt.String(), p.StudentName, p.ItemName,
		strconv.Itoa(p.Quantity), money(p.Amount), string(p.Status),
	}
}

func renderStock(s model.StockMovement, _ labeler) []string {
	return []string{
		s.CreatedAt.String(), s.ItemName, string(s.MovementType), strconv.Itoa(s.Quantity),
		money(s.UnitCost), money(s.Total()), string(s.Status),
	}
}

func renderTransport(t model.TransportEnrollment, _ labeler) []string {
	return []string{
		t.StudentName, t.RouteName, orDash(t.StopName),
		t.StartDate.String(), orDash(t.EndDate.String()), money(t.MonthlyFee),
	}
}

func renderStudent(s model.Student, _ labeler) []string {
	return []string{s.AdmissionNo, s.FullName(), s.ClassName, orDash(s.GuardianPhone), s.Status}
}

func renderTeacher(t model.Teacher, _ labeler) []string {
	return []string{t.EmployeeNo, t.FullName, orDash(t.Subject), orDash(t.Email), t.Status}
}
