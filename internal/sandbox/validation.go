package sandbox

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerNames sync.Once

// useJSONFieldNames makes binding errors name fields as they appear on the
// wire.
func useJSONFieldNames() {
	registerNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

type fieldDetail struct {
	Msg  string `json:"msg"`
	Type string `json:"type"`
	Loc  []any  `json:"loc"`
}

func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []fieldDetail{
			{Loc: []any{"body"}, Msg: "invalid JSON body", Type: "value_error.json"},
		}})
		return
	}

	details := make([]fieldDetail, 0, len(verrs))
	for _, fe := range verrs {
		loc := []any{"body"}
		// Namespace is "Struct.field.sub"; drop the root struct name.
		parts := strings.Split(fe.Namespace(), ".")
		for _, p := range parts[1:] {
			loc = append(loc, p)
		}
		details = append(details, fieldDetail{Loc: loc, Msg: message(fe), Type: "value_error." + fe.Tag()})
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": details})
}

func validationError(c *gin.Context, where, field, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []fieldDetail{
		{Loc: []any{where, field}, Msg: msg, Type: "value_error"},
	}})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gt":
		return "ensure this value is greater than " + fe.Param()
	case "min":
		return "ensure this value has at least " + fe.Param() + " items"
	case "oneof":
		return "value is not a valid choice (" + fe.Param() + ")"
	case "email":
		return "value is not a valid email address"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
