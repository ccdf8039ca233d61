package console

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ParseAssignments turns "field=value" pairs into a JSON-ready map.
// Integers, decimals and booleans keep their type; anything else stays a
// string. Quoting a value keeps it text, as does a leading zero. A pair may
// also hold several assignments separated by commas.
func ParseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, pair := range pairs {
		for _, part := range strings.Split(pair, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, raw, ok := strings.Cut(part, "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: %q is not field=value", ErrInvalidPayload, part)
			}
			out[name] = scalar(strings.TrimSpace(raw))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no fields given", ErrInvalidPayload)
	}
	return out, nil
}

func scalar(raw string) any {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	if len(raw) > 1 && raw[0] == '0' && raw[1] != '.' {
		return raw
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return json.Number(raw)
	}
	return raw
}

// EncodeAssignments renders the create payload for parsed assignments.
func EncodeAssignments(values map[string]any) ([]byte, error) {
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

// requiredFields lists the json names of the fields a payload must carry.
func requiredFields(t reflect.Type) []string {
	var out []string
	for f := range fieldsOf(t) {
		if !strings.Contains(f.Tag.Get("binding"), "required") {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			out = append(out, name)
		}
	}
	return out
}

func fieldsOf(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			f := t.Field(i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				for inner := range fieldsOf(f.Type) {
					if !yield(inner) {
						return
					}
				}
				continue
			}
			if f.IsExported() && !yield(f) {
				return
			}
		}
	}
}
