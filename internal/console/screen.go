// Package console binds each administration screen's entity type to a
// collection view and exposes it through one non-generic interface.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

// ErrInvalidPayload is returned when a record fails client-side checks.
var ErrInvalidPayload = errors.New("invalid payload")

// Action is a write a screen may offer.
type Action string

// Actions.
const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionApprove   Action = "approve"
	ActionBulkPrice Action = "bulk-price"
)

// Column is one table column.
type Column struct {
	Title string
	Width int
}

// State is a rendered snapshot of a screen.
type State struct {
	Err           error
	Filters       map[string]string
	Rows          [][]string
	IDs           []int
	Approvable    []bool
	Tabs          []string
	PendingSearch string
	Notification  collection.Notification
	Page          collection.PageRequest
	ActiveTab     int
	Total         int
	TotalPages    int
	Loading       bool
	Loaded        bool
}

// Screen is the type-erased face of one administration screen.
type Screen interface {
	Name() string
	Title() string
	Domain() string
	Columns() []Column
	Fields() []collection.Field
	RequiredFields() []string
	Supports(a Action) bool

	Refresh(ctx context.Context) error
	State() State
	Records() []any
	OnChange(fn func())
	Close()

	SetFilter(ctx context.Context, name, value string) error
	SetFilters(ctx context.Context, values map[string]string) error
	ResetFilters(ctx context.Context) error
	TypeSearch(text string)
	SelectTab(ctx context.Context, i int) error
	SetPage(ctx context.Context, index int) error
	NextPage(ctx context.Context) error
	PrevPage(ctx context.Context) error
	SetPageSize(ctx context.Context, size int) error

	Create(ctx context.Context, payload []byte) (any, error)
	Update(ctx context.Context, id int, patch map[string]any) (any, error)
	Delete(ctx context.Context, id int, confirm collection.Confirmer) (bool, error)
	Approve(ctx context.Context, id int, req model.ApprovalRequest) (any, error)
}

// labeler resolves option ids for rendering.
type labeler func(set model.OptionSet, id int) string

type screen[T model.Entity] struct {
	view     *collection.View[T]
	render   func(T, labeler) []string
	label    labeler
	validate *validator.Validate
	actions  map[Action]bool
	name     string
	title    string
	domain   string
	columns  []Column
}

func (s *screen[T]) Name() string      { return s.name }
func (s *screen[T]) Title() string     { return s.title }
func (s *screen[T]) Domain() string    { return s.domain }
func (s *screen[T]) Columns() []Column { return s.columns }

func (s *screen[T]) Fields() []collection.Field { return s.view.Filters().Fields() }

func (s *screen[T]) RequiredFields() []string { return requiredFields(reflect.TypeFor[T]()) }

func (s *screen[T]) Supports(a Action) bool { return s.actions[a] }

func (s *screen[T]) Refresh(ctx context.Context) error { return s.view.Refresh(ctx) }

func (s *screen[T]) OnChange(fn func()) { s.view.OnChange(fn) }

func (s *screen[T]) Close() { s.view.Close() }

func (s *screen[T]) State() State {
	snap := s.view.Snapshot()
	st := State{
		Err:           snap.Err,
		Filters:       snap.Filters,
		Tabs:          snap.Tabs,
		ActiveTab:     snap.ActiveTab,
		PendingSearch: snap.PendingSearch,
		Notification:  snap.Notification,
		Page:          snap.Page,
		Total:         snap.Total,
		TotalPages:    snap.TotalPages,
		Loading:       snap.Loading,
		Loaded:        snap.Loaded,
		Rows:          make([][]string, len(snap.Rows)),
		IDs:           make([]int, len(snap.Rows)),
		Approvable:    make([]bool, len(snap.Rows)),
	}
	for i, r := range snap.Rows {
		st.Rows[i] = s.render(r, s.label)
		st.IDs[i] = r.EntityID()
		st.Approvable[i] = s.actions[ActionApprove] && pending(r)
	}
	return st
}

// pending reports whether approve/reject applies to a record. The server
// remains the authority; this only decides what the console offers.
func pending(v any) bool {
	a, ok := v.(model.Approvable)
	return ok && a.ApprovalStatus().IsPending()
}

func (s *screen[T]) Records() []any {
	rows := s.view.Snapshot().Rows
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func (s *screen[T]) SetFilter(ctx context.Context, name, value string) error {
	return s.view.SetFilter(ctx, name, value)
}

func (s *screen[T]) SetFilters(ctx context.Context, values map[string]string) error {
	return s.view.SetFilters(ctx, values)
}

func (s *screen[T]) ResetFilters(ctx context.Context) error { return s.view.ResetFilters(ctx) }

func (s *screen[T]) TypeSearch(text string) { s.view.TypeSearch(text) }

func (s *screen[T]) SelectTab(ctx context.Context, i int) error { return s.view.SelectTab(ctx, i) }

func (s *screen[T]) SetPage(ctx context.Context, index int) error { return s.view.SetPage(ctx, index) }

func (s *screen[T]) NextPage(ctx context.Context) error { return s.view.NextPage(ctx) }

func (s *screen[T]) PrevPage(ctx context.Context) error { return s.view.PrevPage(ctx) }

func (s *screen[T]) SetPageSize(ctx context.Context, size int) error {
	return s.view.SetPageSize(ctx, size)
}

func (s *screen[T]) Create(ctx context.Context, payload []byte) (any, error) {
	if !s.actions[ActionCreate] {
		return nil, fmt.Errorf("%s: %w", s.name, collection.ErrUnsupported)
	}
	var entity T
	if err := json.Unmarshal(payload, &entity); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", s.name, err)
	}
	if err := s.check(entity); err != nil {
		return nil, err
	}
	return s.view.Create(ctx, entity)
}

func (s *screen[T]) Update(ctx context.Context, id int, patch map[string]any) (any, error) {
	if !s.actions[ActionUpdate] {
		return nil, fmt.Errorf("%s: %w", s.name, collection.ErrUnsupported)
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("update %s #%d: nothing to change", s.name, id)
	}
	return s.view.Update(ctx, id, patch)
}

func (s *screen[T]) Delete(ctx context.Context, id int, confirm collection.Confirmer) (bool, error) {
	if !s.actions[ActionDelete] {
		return false, fmt.Errorf("%s: %w", s.name, collection.ErrUnsupported)
	}
	return s.view.Delete(ctx, id, confirm)
}

func (s *screen[T]) Approve(ctx context.Context, id int, req model.ApprovalRequest) (any, error) {
	if !s.actions[ActionApprove] {
		return nil, fmt.Errorf("%s: %w", s.name, collection.ErrUnsupported)
	}
	return s.view.Approve(ctx, id, req)
}

// check validates a payload against its binding tags before it is sent,
// wording failures the same way the server does.
func (s *screen[T]) check(entity T) error {
	err := s.validate.Struct(entity)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field(), describeTag(fe))
	}
	msg := strings.Join(parts, "; ")
	s.view.Notifier().Error(msg)
	return common.NewUserError(msg, ErrInvalidPayload)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag()
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
