package sandbox

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/schoolctl/internal/model"
)

// dataset is every table the sandbox serves.
type dataset struct {
	now        func() time.Time
	config     map[string]model.ConfigBag
	attendance *table[model.AttendanceRecord]
	leave      *table[model.LeaveRequest]
	pricing    *table[model.PricingRow]
	purchases  *table[model.Purchase]
	stock      *table[model.StockMovement]
	transport  *table[model.TransportEnrollment]
	students   *table[model.Student]
	teachers   *table[model.Teacher]
	sessions   []model.Session
	classes    []model.Class
}

func newDataset(now func() time.Time) *dataset {
	return &dataset{
		now:        now,
		config:     defaultConfig(),
		attendance: newTable(func(v *model.AttendanceRecord, id int) { v.ID = id }),
		leave:      newTable(func(v *model.LeaveRequest, id int) { v.ID = id }),
		pricing:    newTable(func(v *model.PricingRow, id int) { v.ID = id }),
		purchases:  newTable(func(v *model.Purchase, id int) { v.ID = id }),
		stock:      newTable(func(v *model.StockMovement, id int) { v.ID = id }),
		transport:  newTable(func(v *model.TransportEnrollment, id int) { v.ID = id }),
		students:   newTable(func(v *model.Student, id int) { v.ID = id }),
		teachers:   newTable(func(v *model.Teacher, id int) { v.ID = id }),
		sessions:   defaultSessions(),
		classes:    defaultClasses(),
	}
}

func (d *dataset) today() model.Date { return model.NewDate(d.now()) }

func (d *dataset) className(id int) string {
	for _, c := range d.classes {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (d *dataset) studentName(id int) string {
	if s, ok := d.students.get(id); ok {
		return s.FullName()
	}
	return ""
}

func (d *dataset) optionName(domain string, set model.OptionSet, id int) string {
	for _, o := range d.config[domain].Options(set) {
		if o.ID == id {
			return o.Name
		}
	}
	return ""
}

func (d *dataset) attendanceResource() resource[model.AttendanceRecord] {
	return resource[model.AttendanceRecord]{
		path:  "attendance",
		table: d.attendance,
		filters: []predicate[model.AttendanceRecord]{
			dateRange(func(v model.AttendanceRecord) model.Date { return v.Date }),
			intParam("status_id", func(v model.AttendanceRecord) int { return v.StatusID }),
			strParam("status", func(v model.AttendanceRecord) string { return v.Status }),
			intParam("class_id", func(v model.AttendanceRecord) int { return v.ClassID }),
			search(func(v model.AttendanceRecord) []string { return []string{v.StudentName, v.Remarks} }),
		},
		prepare: func(_ *gin.Context, v *model.AttendanceRecord) error {
			st, ok := d.students.get(v.StudentID)
			if !ok {
				return businessError("student %d does not exist", v.StudentID)
			}
			status := d.optionName("attendance-management", model.OptionStatuses, v.StatusID)
			if status == "" {
				return businessError("attendance status %d does not exist", v.StatusID)
			}
			v.Status = status
			v.StudentName = st.FullName()
			v.ClassID = st.ClassID
			v.ClassName = st.ClassName
			if v.Date.IsZero() {
				v.Date = d.today()
			}
			return nil
		},
	}
}

func (d *dataset) leaveResource() resource[model.LeaveRequest] {
	return resource[model.LeaveRequest]{
		path:  "leave-requests",
		table: d.leave,
		filters: []predicate[model.LeaveRequest]{
			dateRange(func(v model.LeaveRequest) model.Date { return v.StartDate }),
			intParam("leave_type_id", func(v model.LeaveRequest) int { return v.LeaveTypeID }),
			strParam("status", func(v model.LeaveRequest) string { return string(v.Status) }),
			intParam("applicant_id", func(v model.LeaveRequest) int { return v.ApplicantID }),
			search(func(v model.LeaveRequest) []string { return []string{v.ApplicantName, v.Reason} }),
		},
		prepare: func(c *gin.Context, v *model.LeaveRequest) error {
			if v.StartDate.IsZero() || v.EndDate.IsZero() {
				return businessError("start_date and end_date are required")
			}
			if v.EndDate.Before(v.StartDate.Time) {
				return businessError("end_date must not be before start_date")
			}
			typ := d.optionName("leave-management", model.OptionCategories, v.LeaveTypeID)
			if typ == "" {
				return businessError("leave type %d does not exist", v.LeaveTypeID)
			}
			v.LeaveType = typ
			if v.ID == 0 {
				if acct, ok := currentAccount(c); ok {
					v.ApplicantID = acct.ID
					v.ApplicantName = acct.FullName
				}
				v.Status = model.StatusPending
			}
			return nil
		},
		approve: func(v *model.LeaveRequest, req model.ApprovalRequest) error {
			if req.Decision == model.DecisionRejected && req.Comments == "" {
				return businessError("a comment is required when rejecting leave")
			}
			v.Status = req.Decision.Status()
			v.ReviewerComments = req.Comments
			return nil
		},
	}
}

func (d *dataset) pricingResource() resource[model.PricingRow] {
	return resource[model.PricingRow]{
		path:  "pricing",
		table: d.pricing,
		filters: []predicate[model.PricingRow]{
			intParam("category_id", func(v model.PricingRow) int { return v.CategoryID }),
			optionParam("session_year", func(id int) string {
				return d.optionName("inventory-management", model.OptionSessionYears, id)
			}, func(v model.PricingRow) string { return v.SessionYear }),
			boolParam("is_active", func(v model.PricingRow) bool { return v.IsActive }),
			search(func(v model.PricingRow) []string { return []string{v.ItemName, v.CategoryName} }),
		},
		prepare: func(_ *gin.Context, v *model.PricingRow) error {
			if v.UnitPrice.IsNegative() {
				return businessError("unit_price must not be negative")
			}
			name := d.optionName("inventory-management", model.OptionCategories, v.CategoryID)
			if name == "" {
				return businessError("category %d does not exist", v.CategoryID)
			}
			v.CategoryName = name
			if v.SessionYear == "" {
				v.SessionYear = d.currentSession().Name
			}
			return nil
		},
	}
}

func (d *dataset) purchaseResource() resource[model.Purchase] {
	return resource[model.Purchase]{
		path:  "purchases",
		table: d.purchases,
		filters: []predicate[model.Purchase]{
			dateRange(func(v model.Purchase) model.Date { return v.PurchasedAt }),
			intParam("category_id", func(v model.Purchase) int { return v.CategoryID }),
			strParam("status", func(v model.Purchase) string { return string(v.Status) }),
			search(func(v model.Purchase) []string { return []string{v.StudentName, v.ItemName} }),
		},
		prepare: func(_ *gin.Context, v *model.Purchase) error {
			item, ok := d.pricing.get(v.ItemID)
			if !ok {
				return businessError("item %d does not exist", v.ItemID)
			}
			if !item.IsActive {
				return businessError("%s is not on sale", item.ItemName)
			}
			student := d.studentName(v.StudentID)
			if student == "" {
				return businessError("student %d does not exist", v.StudentID)
			}
			v.ItemName = item.ItemName
			v.CategoryID = item.CategoryID
			v.CategoryName = item.CategoryName
			v.StudentName = student
			v.Amount = item.UnitPrice.Mul(decimal.NewFromInt(int64(v.Quantity)))
			if v.PurchasedAt.IsZero() {
				v.PurchasedAt = d.today()
			}
			if v.Status == "" {
				v.Status = model.StatusPending
			}
			return nil
		},
		approve: func(v *model.Purchase, req model.ApprovalRequest) error {
			if req.Decision == model.DecisionApproved {
				v.Status = model.StatusCompleted
				return nil
			}
			v.Status = model.StatusRejected
			return nil
		},
	}
}

func (d *dataset) stockResource() resource[model.StockMovement] {
	return resource[model.StockMovement]{
		path:  "stock-movements",
		table: d.stock,
		filters: []predicate[model.StockMovement]{
			dateRange(func(v model.StockMovement) model.Date { return v.CreatedAt }),
			strParam("movement_type", func(v model.StockMovement) string { return string(v.MovementType) }),
			strParam("status", func(v model.StockMovement) string { return string(v.Status) }),
			search(func(v model.StockMovement) []string { return []string{v.ItemName, v.Supplier} }),
		},
		prepare: func(_ *gin.Context, v *model.StockMovement) error {
			item, ok := d.pricing.get(v.ItemID)
			if !ok {
				return businessError("item %d does not exist", v.ItemID)
			}
			v.ItemName = item.ItemName
			if v.CreatedAt.IsZero() {
				v.CreatedAt = d.today()
			}
			if v.Status == "" {
				v.Status = model.StatusPending
			}
			return nil
		},
		approve: func(v *model.StockMovement, req model.ApprovalRequest) error {
			v.Status = req.Decision.Status()
			return nil
		},
	}
}

func (d *dataset) transportResource() resource[model.TransportEnrollment] {
	return resource[model.TransportEnrollment]{
		path:  "transport-enrollments",
		table: d.transport,
		filters: []predicate[model.TransportEnrollment]{
			intParam("route_id", func(v model.TransportEnrollment) int { return v.RouteID }),
			strParam("status", func(v model.TransportEnrollment) string { return v.Status }),
			search(func(v model.TransportEnrollment) []string { return []string{v.StudentName, v.RouteName, v.StopName} }),
		},
		prepare: func(_ *gin.Context, v *model.TransportEnrollment) error {
			route := d.optionName("transport-management", model.OptionCategories, v.RouteID)
			if route == "" {
				return businessError("route %d does not exist", v.RouteID)
			}
			student := d.studentName(v.StudentID)
			if student == "" {
				return businessError("student %d does not exist", v.StudentID)
			}
			if !v.EndDate.IsZero() && v.EndDate.Before(v.StartDate.Time) {
				return businessError("end_date must not be before start_date")
			}
			v.RouteName = route
			v.StudentName = student
			if v.StartDate.IsZero() {
				v.StartDate = d.today()
			}
			v.Status = "Active"
			if !v.EndDate.IsZero() && !v.EndDate.After(d.now()) {
				v.Status = "Ended"
			}
			return nil
		},
	}
}

func (d *dataset) studentResource() resource[model.Student] {
	return resource[model.Student]{
		path:  "students",
		table: d.students,
		filters: []predicate[model.Student]{
			intParam("class_id", func(v model.Student) int { return v.ClassID }),
			strParam("status", func(v model.Student) string { return v.Status }),
			search(func(v model.Student) []string { return []string{v.FullName(), v.AdmissionNo} }),
		},
		prepare: func(_ *gin.Context, v *model.Student) error {
			name := d.className(v.ClassID)
			if name == "" {
				return businessError("class %d does not exist", v.ClassID)
			}
			v.ClassName = name
			if v.Status == "" {
				v.Status = "Active"
			}
			return nil
		},
	}
}

func (d *dataset) teacherResource() resource[model.Teacher] {
	return resource[model.Teacher]{
		path:  "teachers",
		table: d.teachers,
		filters: []predicate[model.Teacher]{
			containsParam("subject", func(v model.Teacher) string { return v.Subject }),
			strParam("status", func(v model.Teacher) string { return v.Status }),
			search(func(v model.Teacher) []string { return []string{v.FullName, v.Email, v.EmployeeNo} }),
		},
		prepare: func(_ *gin.Context, v *model.Teacher) error {
			if v.Status == "" {
				v.Status = "Active"
			}
			return nil
		},
	}
}
