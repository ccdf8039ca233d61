package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/lookup"
	"github.com/Veraticus/schoolctl/internal/model"
)

// Screen names.
const (
	ScreenAttendance = "attendance"
	ScreenLeave      = "leave"
	ScreenPricing    = "pricing"
	ScreenPurchases  = "purchases"
	ScreenStock      = "stock"
	ScreenTransport  = "transport"
	ScreenStudents   = "students"
	ScreenTeachers   = "teachers"
)

// Configuration domains.
const (
	DomainAttendance = "attendance-management"
	DomainLeave      = "leave-management"
	DomainInventory  = "inventory-management"
	DomainStock      = "stock-management"
	DomainTransport  = "transport-management"
	DomainStudents   = "student-management"
	DomainTeachers   = "teacher-management"
)

// Deps are the shared services every screen is built on.
type Deps struct {
	Client         *api.Client
	Guard          collection.Guard
	Lookup         *lookup.Service
	Notifier       *collection.Notifier
	Clock          collection.Clock
	User           *model.User
	PageSize       int
	SearchDebounce time.Duration
}

// Registry holds every screen in display order.
type Registry struct {
	deps    Deps
	byName  map[string]Screen
	screens []Screen
}

// NewRegistry builds all screens. Nothing is fetched until a screen is
// refreshed.
func NewRegistry(ctx context.Context, deps Deps) (*Registry, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("%w: api client", common.ErrMissingConfig)
	}
	if deps.Notifier == nil {
		deps.Notifier = collection.NewNotifier(deps.Clock, collection.DefaultNotificationTTL)
	}
	if deps.PageSize == 0 {
		deps.PageSize = collection.DefaultPageSize
	}

	r := &Registry{deps: deps, byName: make(map[string]Screen)}
	builders := []func(context.Context, Deps) (Screen, error){
		attendanceScreen,
		leaveScreen,
		pricingScreen,
		purchasesScreen,
		stockScreen,
		transportScreen,
		studentsScreen,
		teachersScreen,
	}
	for _, b := range builders {
		s, err := b(ctx, deps)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.screens = append(r.screens, s)
		r.byName[s.Name()] = s
	}
	return r, nil
}

// Screens returns the screens in display order.
func (r *Registry) Screens() []Screen { return r.screens }

// Names returns the screen names in display order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.screens))
	for i, s := range r.screens {
		names[i] = s.Name()
	}
	return names
}

// Get looks a screen up by name.
func (r *Registry) Get(name string) (Screen, error) {
	s, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", common.ErrUnknownScreen, name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Notifier returns the notification channel shared by all screens.
func (r *Registry) Notifier() *collection.Notifier { return r.deps.Notifier }

// Options returns the active enumeration entries of a domain, or nil
// before the domain has loaded.
func (r *Registry) Options(domain string, set model.OptionSet) []model.Option {
	if r.deps.Lookup == nil {
		return nil
	}
	return model.ActiveOptions(r.deps.Lookup.Options(domain, set))
}

// User returns the logged-in user the screens were built for.
func (r *Registry) User() (model.User, bool) {
	if r.deps.User == nil {
		return model.User{}, false
	}
	return *r.deps.User, true
}

// Close releases every screen.
func (r *Registry) Close() {
	for _, s := range r.screens {
		s.Close()
	}
}

// BulkUpdatePrices sets several unit prices and refreshes the pricing screen.
func (r *Registry) BulkUpdatePrices(ctx context.Context, req model.BulkPriceRequest) (api.BulkPriceResult, error) {
	res, err := r.deps.Client.BulkUpdatePrices(ctx, req)
	if err != nil {
		if r.deps.Guard == nil || !r.deps.Guard.HandleUnauthorized(err) {
			r.deps.Notifier.Error(api.UserMessage(err))
		}
		return res, fmt.Errorf("bulk price update: %w", err)
	}
	r.deps.Notifier.Success(fmt.Sprintf("Updated %d prices", res.Updated))
	if s, ok := r.byName[ScreenPricing]; ok {
		if err := s.Refresh(ctx); err != nil {
			common.LogWarn("refresh after bulk price update failed", common.Fields{"error": err.Error()})
		}
	}
	return res, nil
}

type descriptor[T model.Entity] struct {
	render   func(T, labeler) []string
	name     string
	title    string
	label    string
	resource string
	domain   string
	columns  []Column
	fields   []collection.Field
	tabs     []collection.Tab[T]
	actions  []Action
}

func build[T model.Entity](ctx context.Context, deps Deps, d descriptor[T]) (Screen, error) {
	res := api.NewResource[T](deps.Client, d.resource)

	opts := []collection.Option[T]{
		collection.WithClock[T](deps.Clock),
		collection.WithNotifier[T](deps.Notifier),
		collection.WithDescriber[T](api.UserMessage),
		collection.WithFields[T](d.fields...),
		collection.WithTabs(d.tabs...),
		collection.WithPageSize[T](deps.PageSize),
		collection.WithLabel[T](d.label),
		collection.WithMutator[T](res),
	}
	if deps.SearchDebounce > 0 {
		opts = append(opts, collection.WithSearchDebounce[T](deps.SearchDebounce))
	}
	if deps.Guard != nil {
		opts = append(opts, collection.WithGuard[T](deps.Guard))
	}
	if deps.Lookup != nil {
		opts = append(opts, collection.WithReadiness[T](deps.Lookup, d.domain))
	}

	view, err := collection.NewView[T](ctx, res, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s screen: %w", d.name, err)
	}

	actions := make(map[Action]bool, len(d.actions))
	for _, a := range d.actions {
		actions[a] = true
	}

	label := func(set model.OptionSet, id int) string { return strconv.Itoa(id) }
	if deps.Lookup != nil {
		svc, domain := deps.Lookup, d.domain
		label = func(set model.OptionSet, id int) string { return svc.Label(domain, set, id) }
	}

	return &screen[T]{
		view:     view,
		render:   d.render,
		label:    label,
		validate: newValidator(),
		actions:  actions,
		name:     d.name,
		title:    d.title,
		domain:   d.domain,
		columns:  d.columns,
	}, nil
}

var crud = []Action{ActionCreate, ActionUpdate, ActionDelete}

func dateFields() []collection.Field {
	return []collection.Field{
		{Name: "date_from", Label: "From", Kind: collection.KindDate},
		{Name: "date_to", Label: "To", Kind: collection.KindDate},
	}
}

func attendanceScreen(ctx context.Context, deps Deps) (Screen, error) {
	return build(ctx, deps, descriptor[model.AttendanceRecord]{
		name:     ScreenAttendance,
		title:    "Attendance",
		label:    "Attendance record",
		resource: api.ResourceAttendance,
		domain:   DomainAttendance,
		columns: []Column{
			{Title: "Date", Width: 10}, {Title: "Student", Width: 22}, {Title: "Class", Width: 10},
			{Title: "Status", Width: 12}, {Title: "Remarks", Width: 24},
		},
		fields: append(dateFields(),
			collection.Field{Name: "status_id", Label: "Status", Kind: collection.KindID, OptionSet: model.OptionStatuses},
			collection.Field{Name: "class_id", Label: "Class", Kind: collection.KindID},
		),
		tabs: []collection.Tab[model.AttendanceRecord]{
			collection.ServerTab[model.AttendanceRecord]("All", nil),
			collection.ServerTab[model.AttendanceRecord]("Present", map[string]string{"status": "Present"}),
			collection.ServerTab[model.AttendanceRecord]("Absent", map[string]string{"status": "Absent"}),
		},
		actions: crud,
		render:  renderAttendance,
	})
}

func leaveScreen(ctx context.Context, deps Deps) (Screen, error) {
	tabs := []collection.Tab[model.LeaveRequest]{
		collection.ServerTab[model.LeaveRequest]("All", nil),
		collection.ServerTab[model.LeaveRequest]("Pending", map[string]string{"status": string(model.StatusPending)}),
	}
	if deps.User != nil {
		tabs = append(tabs, collection.ServerTab[model.LeaveRequest]("Mine", map[string]string{"applicant_id": strconv.Itoa(deps.User.ID)}))
	}
	return build(ctx, deps, descriptor[model.LeaveRequest]{
		name:     ScreenLeave,
		title:    "Leave",
		label:    "Leave request",
		resource: api.ResourceLeave,
		domain:   DomainLeave,
		columns: []Column{
			{Title: "From", Width: 10}, {Title: "To", Width: 10}, {Title: "Days", Width: 4},
			{Title: "Applicant", Width: 20}, {Title: "Type", Width: 14}, {Title: "Status", Width: 10},
		},
		fields: append(dateFields(),
			collection.Field{Name: "leave_type_id", Label: "Type", Kind: collection.KindID, OptionSet: model.OptionCategories},
		),
		tabs:    tabs,
		actions: []Action{ActionCreate, ActionDelete, ActionApprove},
		render:  renderLeave,
	})
}

func pricingScreen(ctx context.Context, deps Deps) (Screen, error) {
	return build(ctx, deps, descriptor[model.PricingRow]{
		name:     ScreenPricing,
		title:    "Pricing",
		label:    "Price",
		resource: api.ResourcePricing,
		domain:   DomainInventory,
		columns: []Column{
			{Title: "Item", Width: 24}, {Title: "Category", Width: 14}, {Title: "Session", Width: 10},
			{Title: "Unit price", Width: 10}, {Title: "Active", Width: 6},
		},
		fields: []collection.Field{
			{Name: "category_id", Label: "Category", Kind: collection.KindID, OptionSet: model.OptionCategories},
			{Name: "session_year", Label: "Session", Kind: collection.KindID, OptionSet: model.OptionSessionYears},
		},
		tabs: []collection.Tab[model.PricingRow]{
			collection.ServerTab[model.PricingRow]("Active", map[string]string{"is_active": "true"}),
			collection.ServerTab[model.PricingRow]("Inactive", map[string]string{"is_active": "false"}),
		},
		actions: append(crud, ActionBulkPrice),
		render:  renderPricing,
	})
}

func purchasesScreen(ctx context.Context, deps Deps) (Screen, error) {
	return build(ctx, deps, descriptor[model.Purchase]{
		name:     ScreenPurchases,
		title:    "Purchases",
		label:    "Purchase",
		resource: api.ResourcePurchases,
		domain:   DomainInventory,
		columns: []Column{
			{Title: "Date", Width: 10}, {Title: "Student", Width: 20}, {Title: "Item", Width: 20},
			{Title: "Qty", Width: 4}, {Title: "Amount", Width: 10}, {Title: "Status", Width: 10},
		},
		fields: append(dateFields(),
			collection.Field{Name: "category_id", Label: "Category", Kind: collection.KindID, OptionSet: model.OptionCategories},
		),
		tabs: []collection.Tab[model.Purchase]{
			collection.ServerTab[model.Purchase]("All", nil),
			collection.ServerTab[model.Purchase]("Pending", map[string]string{"status": string(model.StatusPending)}),
			collection.ServerTab[model.Purchase]("Completed", map[string]string{"status": string(model.StatusCompleted)}),
		},
		actions: []Action{ActionCreate, ActionDelete, ActionApprove},
		render:  renderPurchase,
	})
}

func stockScreen(ctx context.Context, deps Deps) (Screen, error) {
	return build(ctx, deps, descriptor[model.StockMovement]{
		name:     ScreenStock,
		title:    "Stock",
		label:    "Stock movement",
		resource: api.ResourceStock,
		domain:   DomainStock,
		columns: []Column{
			{Title: "Date", Width: 10}, {Title: "Item", Width: 20}, {Title: "Type", Width: 10},
			{Title: "Qty", Width: 5}, {Title: "Unit cost", Width: 9}, {Title: "Total", Width: 10},
			{Title: "Status", Width: 10},
		},
		fields: append(dateFields(),
			collection.Field{Name: "movement_type", Label: "Type", Kind: collection.KindChoice, Choices: []string{
				string(model.MovementIn), string(model.MovementOut), string(model.MovementAdjustment),
			}},
		),
		tabs: []collection.Tab[model.StockMovement]{
			collection.ServerTab[model.StockMovement]("All", nil),
			collection.ServerTab[model.StockMovement]("Pending", map[string]string{"status": string(model.StatusPending)}),
		},
		actions: []Action{ActionCreate, ActionDelete, ActionApprove},
		render:  renderStock,
	})
}

func transportScreen(ctx context.Context, deps Deps) (Screen, error) {
	return build(ctx, deps, descriptor[model.TransportEnrollment]{
		name:     ScreenTransport,
		title:    "Transport",
		label:    "Enrollment",
		resource: api.ResourceTransport,
		domain:   DomainTransport,
		columns: []Column{
			{Title: "Student", Width: 20}, {Title: "Route", Width: 14}, {Title: "Stop", Width: 14},
			{Title: "Start", Width: 10}, {Title: "End", Width: 10}, {Title: "Fee", Width: 8},
		},
		fields: []collection.Field{
			{Name: "route_id", Label: "Route", Kind: collection.KindID, OptionSet: model.OptionCategories},
		},
		tabs: []collection.Tab[model.TransportEnrollment]{
			collection.ServerTab[model.TransportEnrollment]("Active", map[string]string{"status": "Active"}),
			collection.ServerTab[model.TransportEnrollment]("Ended", map[string]string{"status": "Ended"}),
		},
		actions: crud,
		render:  renderTransport,
	})
}

func studentsScreen(ctx context.Context, deps Deps) (Screen, error) {
	return build(ctx, deps, descriptor[model.Student]{
		name:     ScreenStudents,
		title:    "Students",
		label:    "Student",
		resource: api.ResourceStudents,
		domain:   DomainStudents,
		columns: []Column{
			{Title: "Adm no", Width: 8}, {Title: "Name", Width: 24}, {Title: "Class", Width: 10},
			{Title: "Guardian", Width: 14}, {Title: "Status", Width: 8},
		},
		fields: []collection.Field{
			{Name: "class_id", Label: "Class", Kind: collection.KindID},
		},
		tabs:    activityTabs[model.Student](),
		actions: crud,
		render:  renderStudent,
	})
}

func teachersScreen(ctx context.Context, deps Deps) (Screen, error) {
	return build(ctx, deps, descriptor[model.Teacher]{
		name:     ScreenTeachers,
		title:    "Teachers",
		label:    "Teacher",
		resource: api.ResourceTeachers,
		domain:   DomainTeachers,
		columns: []Column{
			{Title: "Emp no", Width: 8}, {Title: "Name", Width: 22}, {Title: "Subject", Width: 14},
			{Title: "Email", Width: 24}, {Title: "Status", Width: 8},
		},
		fields: []collection.Field{
			{Name: "subject", Label: "Subject", Kind: collection.KindText},
		},
		tabs:    activityTabs[model.Teacher](),
		actions: crud,
		render:  renderTeacher,
	})
}

func activityTabs[T model.Activatable]() []collection.Tab[T] {
	return []collection.Tab[T]{
		collection.ClientTab[T]("All", nil),
		collection.ClientTab("Active", func(v T) bool { return v.Active() }),
		collection.ClientTab("Inactive", func(v T) bool { return !v.Active() }),
	}
}
