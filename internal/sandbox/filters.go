package sandbox

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Veraticus/schoolctl/internal/model"
)

// predicate decides whether a record matches the request's query.
type predicate[T any] func(v T, q url.Values) bool

func matchAll[T any](v T, q url.Values, preds []predicate[T]) bool {
	for _, p := range preds {
		if !p(v, q) {
			return false
		}
	}
	return true
}

func intParam[T any](name string, get func(T) int) predicate[T] {
	return func(v T, q url.Values) bool {
		raw := q.Get(name)
		if raw == "" {
			return true
		}
		want, err := strconv.Atoi(raw)
		return err == nil && get(v) == want
	}
}

func strParam[T any](name string, get func(T) string) predicate[T] {
	return func(v T, q url.Values) bool {
		raw := q.Get(name)
		return raw == "" || strings.EqualFold(get(v), raw)
	}
}

func boolParam[T any](name string, get func(T) bool) predicate[T] {
	return func(v T, q url.Values) bool {
		raw := q.Get(name)
		if raw == "" {
			return true
		}
		want, err := strconv.ParseBool(raw)
		return err == nil && get(v) == want
	}
}

func dateRange[T any](get func(T) model.Date) predicate[T] {
	return func(v T, q url.Values) bool {
		d := get(v)
		if from, err := model.ParseDate(q.Get("date_from")); err == nil && d.Before(from.Time) {
			return false
		}
		if to, err := model.ParseDate(q.Get("date_to")); err == nil && d.After(to.Time) {
			return false
		}
		return true
	}
}

func search[T any](fields func(T) []string) predicate[T] {
	return func(v T, q url.Values) bool {
		term := strings.ToLower(strings.TrimSpace(q.Get("search")))
		if term == "" {
			return true
		}
		for _, f := range fields(v) {
			if strings.Contains(strings.ToLower(f), term) {
				return true
			}
		}
		return false
	}
}

func containsParam[T any](name string, get func(T) string) predicate[T] {
	return func(v T, q url.Values) bool {
		raw := strings.ToLower(strings.TrimSpace(q.Get(name)))
		return raw == "" || strings.Contains(strings.ToLower(get(v)), raw)
	}
}

// optionParam matches an option id in the query against a record's option name.
func optionParam[T any](name string, lookup func(id int) string, get func(T) string) predicate[T] {
	return func(v T, q url.Values) bool {
		raw := q.Get(name)
		if raw == "" {
			return true
		}
		id, err := strconv.Atoi(raw)
		return err == nil && strings.EqualFold(lookup(id), get(v))
	}
}
