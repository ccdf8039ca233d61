package collection

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Veraticus/schoolctl/internal/model"
)

// SearchField is the name of the free-text filter.
const SearchField = "search"

// AllValue is the "All" sentinel: selecting it removes the filter.
const AllValue = ""

// Filter errors.
var (
	ErrUnknownFilter = errors.New("unknown filter")
	ErrInvalidFilter = errors.New("invalid filter value")
)

// FieldKind decides how a raw filter value is coerced.
type FieldKind int

// Field kinds.
const (
	KindText FieldKind = iota
	KindID
	KindDate
	KindChoice
)

// Field describes one filter a screen exposes.
type Field struct {
	Name  string
	Label string
	// OptionSet names the configuration enumeration that populates the
	// dropdown for KindID fields.
	OptionSet model.OptionSet
	// Choices lists fixed values for KindChoice fields.
	Choices []string
	Kind    FieldKind
}

// Filters holds the committed filter criteria of one view plus the
// uncommitted search text typed so far.
type Filters struct {
	fields        map[string]Field
	values        map[string]string
	order         []string
	pendingSearch string
	mu            sync.RWMutex
}

// NewFilters creates a holder for the given fields. The search field is
// always present.
func NewFilters(fields ...Field) *Filters {
	f := &Filters{
		fields: make(map[string]Field, len(fields)+1),
		values: make(map[string]string),
	}
	for _, field := range fields {
		if field.Name == SearchField {
			continue
		}
		f.fields[field.Name] = field
		f.order = append(f.order, field.Name)
	}
	f.fields[SearchField] = Field{Name: SearchField, Label: "Search", Kind: KindText}
	return f
}

// Fields returns the non-search fields in declaration order.
func (f *Filters) Fields() []Field {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Field, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.fields[name])
	}
	return out
}

// Get returns the committed value of a filter.
func (f *Filters) Get(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[name]
}

// Set coerces and commits a filter value. It reports whether the committed
// criteria changed. Setting AllValue clears the filter.
func (f *Filters) Set(name, raw string) (bool, error) {
	return f.SetAll(map[string]string{name: raw})
}

// SetAll coerces every value before committing any of them, so an unknown
// name or an invalid value leaves the criteria untouched.
func (f *Filters) SetAll(raw map[string]string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	coerced := make(map[string]string, len(raw))
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		field, ok := f.fields[name]
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
		}
		value, err := coerce(field, raw[name])
		if err != nil {
			return false, err
		}
		coerced[name] = value
	}

	changed := false
	for name, value := range coerced {
		if name == SearchField {
			f.pendingSearch = value
		}
		changed = f.commit(name, value) || changed
	}
	return changed, nil
}

func (f *Filters) commit(name, value string) bool {
	old, had := f.values[name]
	if value == AllValue {
		delete(f.values, name)
		return had
	}
	f.values[name] = value
	return !had || old != value
}

// TypeSearch records search text without committing it.
func (f *Filters) TypeSearch(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingSearch = text
}

// PendingSearch returns the text typed so far.
func (f *Filters) PendingSearch() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pendingSearch
}

// CommitSearch promotes the typed text to the committed criteria and
// reports whether the criteria changed.
func (f *Filters) CommitSearch() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commit(SearchField, strings.TrimSpace(f.pendingSearch))
}

// Reset clears every filter, reporting whether anything was set.
func (f *Filters) Reset() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := len(f.values) > 0
	f.values = make(map[string]string)
	f.pendingSearch = ""
	return changed
}

// Values returns a copy of the committed criteria.
func (f *Filters) Values() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.values)
}

func coerce(field Field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == AllValue {
		return AllValue, nil
	}

	switch field.Kind {
	case KindID:
		id, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %s expects a numeric id, got %q", ErrInvalidFilter, field.Name, raw)
		}
		return strconv.Itoa(id), nil
	case KindDate:
		d, err := model.ParseDate(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidFilter, field.Name, err)
		}
		return d.String(), nil
	case KindChoice:
		for _, c := range field.Choices {
			if strings.EqualFold(c, raw) {
				return c, nil
			}
		}
		return "", fmt.Errorf("%w: %s must be one of %s", ErrInvalidFilter, field.Name, strings.Join(field.Choices, ", "))
	default:
		return raw, nil
	}
}
