package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/schoolctl/internal/common"
)

// Kind classifies a failed request.
type Kind int

// Error kinds.
const (
	KindNetwork Kind = iota
	KindAuth
	KindValidation
	KindBusiness
	KindServer
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindBusiness:
		return "business"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// User-facing messages for kinds that carry no server text.
const (
	MsgNetwork  = "Unable to reach the server. Check your connection and try again."
	MsgServer   = "The server encountered an error. Please try again later."
	MsgAuth     = "Your session has expired. Please log in again."
	MsgFallback = "Something went wrong. Please try again."
)

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Error is a failed API call.
type Error struct {
	Err     error
	Method  string
	Path    string
	Message string
	Fields  []FieldError
	Kind    Kind
	Status  int
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d", e.Status)
	}
	fmt.Fprintf(&b, " (%s)", e.Kind)
	if msg := e.detail(); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) detail() string {
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			if f.Field == "" {
				parts[i] = f.Message
				continue
			}
			parts[i] = f.Field + ": " + f.Message
		}
		return strings.Join(parts, "; ")
	}
	return e.Message
}

// IsAuth reports whether err is a rejected or missing credential.
func IsAuth(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindAuth
	}
	return errors.Is(err, common.ErrNotAuthenticated) || errors.Is(err, common.ErrSessionExpired)
}

// KindOf returns the kind of an API error.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// UserMessage words err for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		switch {
		case errors.Is(err, common.ErrNotAuthenticated), errors.Is(err, common.ErrSessionExpired):
			return MsgAuth
		case errors.Is(err, context.DeadlineExceeded):
			return MsgNetwork
		}
		return MsgFallback
	}

	switch apiErr.Kind {
	case KindNetwork:
		return MsgNetwork
	case KindAuth:
		return MsgAuth
	case KindServer:
		return MsgServer
	case KindValidation, KindBusiness:
		if msg := apiErr.detail(); msg != "" {
			return msg
		}
	}
	return MsgFallback
}

type validationBody struct {
	Detail []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	} `json:"detail"`
}

type messageBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// errorFromResponse classifies a non-2xx response.
func errorFromResponse(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
		e.Message = messageFrom(body)
	case status >= http.StatusInternalServerError:
		e.Kind = KindServer
	case status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
		e.Fields = fieldsFrom(body)
		if len(e.Fields) == 0 {
			e.Message = messageFrom(body)
		}
	default:
		e.Kind = KindBusiness
		e.Message = messageFrom(body)
	}
	return e
}

func fieldsFrom(body []byte) []FieldError {
	var v validationBody
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	fields := make([]FieldError, 0, len(v.Detail))
	for _, d := range v.Detail {
		fields = append(fields, FieldError{Field: joinLoc(d.Loc), Message: d.Msg})
	}
	return fields
}

// joinLoc renders a location path such as ["body","items",0,"unit_price"]
// as "items.0.unit_price".
func joinLoc(loc []any) string {
	parts := make([]string, 0, len(loc))
	for i, p := range loc {
		s := fmt.Sprint(p)
		if i == 0 && s == "body" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

func messageFrom(body []byte) string {
	var m messageBody
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	if m.Detail != "" {
		return m.Detail
	}
	return m.Message
}
