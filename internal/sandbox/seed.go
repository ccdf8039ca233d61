package sandbox

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/schoolctl/internal/model"
)

var (
	firstNames = []string{
		"Achieng", "Baraka", "Chidi", "Dalia", "Emeka", "Fatuma", "Gideon", "Halima",
		"Imani", "Jabari", "Kamau", "Lulu", "Makena", "Nia", "Odhiambo", "Pendo",
		"Rashid", "Sefu", "Tamu", "Wanjiru", "Zuri", "Yusuf",
	}
	lastNames = []string{
		"Kariuki", "Otieno", "Mutua", "Wekesa", "Chebet", "Kiprop", "Nyambura",
		"Omondi", "Wambui", "Kimani", "Akinyi", "Barasa",
	}
	subjects = []string{"Mathematics", "English", "Kiswahili", "Biology", "Chemistry", "Physics", "History"}
	stops    = []string{"Main Gate", "Market", "Church Corner", "Police Post", "Stadium"}
	items    = []struct {
		name     string
		category int
		price    string
	}{
		{"School Sweater", 1, "1200.00"},
		{"Shirt (White)", 1, "650.00"},
		{"Games Kit", 1, "900.00"},
		{"Exercise Book (A4)", 2, "45.00"},
		{"Geometry Set", 2, "250.00"},
		{"Graph Book", 2, "80.00"},
		{"Lab Coat", 3, "1100.00"},
		{"Safety Goggles", 3, "400.00"},
	}
)

func option(id int, name string, active bool) model.Option {
	return model.Option{ID: id, Name: name, IsActive: active}
}

func defaultConfig() map[string]model.ConfigBag {
	years := []model.Option{option(1, "2024", true), option(2, "2025", true), option(3, "2023", false)}
	approval := []model.Option{
		option(1, string(model.StatusPending), true),
		option(2, string(model.StatusApproved), true),
		option(3, string(model.StatusRejected), true),
		option(4, string(model.StatusCompleted), true),
	}
	active := []model.Option{option(1, "Active", true), option(2, "Inactive", true)}

	bags := []model.ConfigBag{
		{
			Domain: "attendance-management",
			Statuses: []model.Option{
				option(1, "Present", true), option(2, "Absent", true),
				option(3, "Late", true), option(4, "Excused", false),
			},
			SessionYears: years,
		},
		{
			Domain:   "leave-management",
			Statuses: approval,
			Categories: []model.Option{
				option(1, "Sick", true), option(2, "Annual", true),
				option(3, "Compassionate", true), option(4, "Study", false),
			},
			SessionYears: years,
		},
		{
			Domain:   "inventory-management",
			Statuses: approval,
			Categories: []model.Option{
				option(1, "Uniform", true), option(2, "Stationery", true), option(3, "Laboratory", true),
			},
			SessionYears: years,
		},
		{
			Domain:   "stock-management",
			Statuses: approval,
			Categories: []model.Option{
				option(1, string(model.MovementIn), true),
				option(2, string(model.MovementOut), true),
				option(3, string(model.MovementAdjustment), true),
			},
			SessionYears: years,
		},
		{
			Domain:   "transport-management",
			Statuses: []model.Option{option(1, "Active", true), option(2, "Ended", true)},
			Categories: []model.Option{
				option(1, "Route A - Town", true), option(2, "Route B - Estate", true), option(3, "Route C - Hills", false),
			},
			SessionYears: years,
		},
		{Domain: "student-management", Statuses: active, SessionYears: years},
		{Domain: "teacher-management", Statuses: active, SessionYears: years},
	}

	out := make(map[string]model.ConfigBag, len(bags))
	for _, b := range bags {
		if b.Categories == nil {
			b.Categories = []model.Option{}
		}
		out[b.Domain] = b
	}
	return out
}

func defaultSessions() []model.Session {
	date := func(y int, m time.Month, d int) model.Date {
		return model.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
	}
	return []model.Session{
		{ID: 1, Name: "2024", StartDate: date(2024, time.January, 8), EndDate: date(2024, time.November, 22), IsCurrent: true},
		{ID: 2, Name: "2025", StartDate: date(2025, time.January, 6), EndDate: date(2025, time.November, 21)},
	}
}

func defaultClasses() []model.Class {
	return []model.Class{
		{ID: 1, Name: "Form 1", Order: 1},
		{ID: 2, Name: "Form 2", Order: 2},
		{ID: 3, Name: "Form 3", Order: 3},
		{ID: 4, Name: "Form 4", Order: 4},
	}
}

func (d *dataset) currentSession() model.Session {
	for _, s := range d.sessions {
		if s.IsCurrent {
			return s
		}
	}
	return d.sessions[0]
}

// seed fills every table with deterministic sample records.
func (d *dataset) seed(seed int64) {
	r := rand.New(rand.NewSource(seed))
	pick := func(xs []string) string { return xs[r.Intn(len(xs))] }
	today := d.today()
	daysAgo := func(n int) model.Date { return model.Date{Time: today.AddDate(0, 0, -n)} }
	approvals := []model.ApprovalStatus{model.StatusPending, model.StatusApproved, model.StatusRejected}

	for i := range 40 {
		class := d.classes[i%len(d.classes)]
		status := "Active"
		if i%9 == 8 {
			status = "Inactive"
		}
		d.students.insert(model.Student{
			AdmissionNo:   fmt.Sprintf("ADM%04d", 1001+i),
			FirstName:     pick(firstNames),
			LastName:      pick(lastNames),
			ClassID:       class.ID,
			ClassName:     class.Name,
			Status:        status,
			GuardianPhone: fmt.Sprintf("07%08d", r.Intn(100000000)),
		})
	}

	for i := range 12 {
		first, last := pick(firstNames), pick(lastNames)
		status := "Active"
		if i == 11 {
			status = "Inactive"
		}
		d.teachers.insert(model.Teacher{
			EmployeeNo: fmt.Sprintf("TSC%03d", 101+i),
			FullName:   first + " " + last,
			Email:      fmt.Sprintf("%s.%s@school.example", strings.ToLower(first), strings.ToLower(last)),
			Subject:    subjects[i%len(subjects)],
			Status:     status,
		})
	}

	year := d.currentSession().Name
	cats := d.config["inventory-management"].Categories
	for i, it := range items {
		d.pricing.insert(model.PricingRow{
			ItemName:     it.name,
			CategoryID:   it.category,
			CategoryName: cats[it.category-1].Name,
			SessionYear:  year,
			UnitPrice:    decimal.RequireFromString(it.price),
			IsActive:     i != len(items)-1,
		})
	}

	students := d.students.all()
	statuses := d.config["attendance-management"].Statuses
	for i := range 60 {
		st := students[r.Intn(len(students))]
		mark := statuses[0]
		if r.Intn(5) == 0 {
			mark = statuses[1+r.Intn(2)]
		}
		d.attendance.insert(model.AttendanceRecord{
			Date:        daysAgo(i / 12),
			StudentID:   st.ID,
			StudentName: st.FullName(),
			ClassID:     st.ClassID,
			ClassName:   st.ClassName,
			StatusID:    mark.ID,
			Status:      mark.Name,
		})
	}

	leaveTypes := model.ActiveOptions(d.config["leave-management"].Categories)
	for i := range 15 {
		start := daysAgo(30 - 2*i)
		typ := leaveTypes[r.Intn(len(leaveTypes))]
		lr := model.LeaveRequest{
			StartDate:     start,
			EndDate:       model.Date{Time: start.AddDate(0, 0, r.Intn(4))},
			ApplicantID:   2 + i%2,
			ApplicantName: pick(firstNames) + " " + pick(lastNames),
			LeaveTypeID:   typ.ID,
			LeaveType:     typ.Name,
			Reason:        typ.Name + " leave",
			Status:        approvals[r.Intn(len(approvals))],
		}
		if lr.Status == model.StatusRejected {
			lr.ReviewerComments = "Insufficient cover"
		}
		d.leave.insert(lr)
	}

	prices := d.pricing.all()
	for i := range 30 {
		item := prices[r.Intn(len(prices)-1)]
		st := students[r.Intn(len(students))]
		qty := 1 + r.Intn(3)
		status := model.StatusCompleted
		if i%4 == 0 {
			status = model.StatusPending
		}
		d.purchases.insert(model.Purchase{
			PurchasedAt:  daysAgo(i),
			StudentID:    st.ID,
			StudentName:  st.FullName(),
			ItemID:       item.ID,
			ItemName:     item.ItemName,
			CategoryID:   item.CategoryID,
			CategoryName: item.CategoryName,
			Quantity:     qty,
			Amount:       item.UnitPrice.Mul(decimal.NewFromInt(int64(qty))),
			Status:       status,
		})
	}

	movements := []model.MovementType{model.MovementIn, model.MovementOut, model.MovementAdjustment}
	for i := range 20 {
		item := prices[r.Intn(len(prices))]
		mt := movements[i%len(movements)]
		sm := model.StockMovement{
			CreatedAt:    daysAgo(i),
			ItemID:       item.ID,
			ItemName:     item.ItemName,
			MovementType: mt,
			Quantity:     5 + r.Intn(50),
			UnitCost:     item.UnitPrice.Mul(decimal.RequireFromString("0.6")).Round(2),
			Status:       approvals[r.Intn(len(approvals))],
		}
		if mt == model.MovementIn {
			sm.Supplier = "Elimu Suppliers Ltd"
		}
		d.stock.insert(sm)
	}

	routes := model.ActiveOptions(d.config["transport-management"].Categories)
	for i := range 18 {
		st := students[i*2]
		route := routes[i%len(routes)]
		te := model.TransportEnrollment{
			StudentID:   st.ID,
			StudentName: st.FullName(),
			RouteID:     route.ID,
			RouteName:   route.Name,
			StopName:    pick(stops),
			StartDate:   daysAgo(120 + i),
			MonthlyFee:  decimal.NewFromInt(int64(2500 + 500*route.ID)),
			Status:      "Active",
		}
		if i%6 == 5 {
			te.EndDate = daysAgo(10)
			te.Status = "Ended"
		}
		d.transport.insert(te)
	}
}
