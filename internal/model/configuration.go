package model

import "strconv"

// Option is one enumeration entry from the configuration service.
type Option struct {
	ColorCode   *string `json:"color_code,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ID          int     `json:"id"`
	IsActive    bool    `json:"is_active"`
}

// Label is the dropdown text: description wins over name when present.
func (o Option) Label() string {
	if o.Description != "" {
		return o.Description
	}
	return o.Name
}

// Value is the filter value an option selects.
func (o Option) Value() string {
	return strconv.Itoa(o.ID)
}

// OptionSet names one enumeration inside a configuration bag.
type OptionSet string

// Option sets carried by every domain.
const (
	OptionStatuses     OptionSet = "statuses"
	OptionCategories   OptionSet = "categories"
	OptionSessionYears OptionSet = "session_years"
)

// ConfigBag is the enumeration bag for one service domain.
type ConfigBag struct {
	Domain       string   `json:"domain"`
	Statuses     []Option `json:"statuses"`
	Categories   []Option `json:"categories"`
	SessionYears []Option `json:"session_years"`
}

// Options returns the named enumeration.
func (b ConfigBag) Options(set OptionSet) []Option {
	switch set {
	case OptionStatuses:
		return b.Statuses
	case OptionCategories:
		return b.Categories
	case OptionSessionYears:
		return b.SessionYears
	default:
		return nil
	}
}

// LabelFor translates an id into its display label, falling back to the id.
func (b ConfigBag) LabelFor(set OptionSet, id int) string {
	for _, o := range b.Options(set) {
		if o.ID == id {
			return o.Label()
		}
	}
	return strconv.Itoa(id)
}

// ActiveOptions filters out inactive entries.
func ActiveOptions(opts []Option) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if o.IsActive {
			out = append(out, o)
		}
	}
	return out
}
