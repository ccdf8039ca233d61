package sandbox

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/schoolctl/internal/model"
)

// ruleViolation is a business rule failure, reported as 409 with its text.
type ruleViolation struct {
	msg string
}

func (e *ruleViolation) Error() string { return e.msg }

func businessError(format string, args ...any) error {
	return &ruleViolation{msg: fmt.Sprintf(format, args...)}
}

// resource describes one REST collection served by the sandbox.
type resource[T model.Entity] struct {
	table   *table[T]
	filters []predicate[T]
	// prepare fills server-derived fields before a record is stored.
	prepare func(c *gin.Context, v *T) error
	// approve applies a decision; nil means the resource is not approvable.
	approve func(v *T, req model.ApprovalRequest) error
	path    string
}

func mount[T model.Entity](g *gin.RouterGroup, pageBase int, r resource[T]) {
	g.GET("/"+r.path, listHandler(pageBase, r))
	g.POST("/"+r.path, createHandler(r))
	g.GET("/"+r.path+"/:id", getHandler(r))
	g.PATCH("/"+r.path+"/:id", updateHandler(r))
	g.DELETE("/"+r.path+"/:id", deleteHandler(r))
	if r.approve != nil {
		g.POST("/"+r.path+"/:id/approve", approveHandler(r))
	}
}

type listResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func listHandler[T model.Entity](pageBase int, r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(pageBase)))
		if err != nil || page < pageBase {
			validationError(c, "query", "page", fmt.Sprintf("must be an integer >= %d", pageBase))
			return
		}
		perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "25"))
		if err != nil || perPage < 1 || perPage > 500 {
			validationError(c, "query", "per_page", "must be between 1 and 500")
			return
		}

		q := c.Request.URL.Query()
		matched := make([]T, 0)
		for _, v := range r.table.all() {
			if matchAll(v, q, r.filters) {
				matched = append(matched, v)
			}
		}

		total := len(matched)
		start := min((page-pageBase)*perPage, total)
		end := min(start+perPage, total)
		c.JSON(http.StatusOK, listResponse[T]{
			Items:      matched[start:end],
			Total:      total,
			TotalPages: (total + perPage - 1) / perPage,
		})
	}
}

func getHandler[T model.Entity](r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		v, found := r.table.get(id)
		if !found {
			notFound(c, r.path, id)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func createHandler[T model.Entity](r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var v T
		if err := c.ShouldBindJSON(&v); err != nil {
			bindError(c, err)
			return
		}
		if r.prepare != nil {
			if err := r.prepare(c, &v); err != nil {
				ruleError(c, err)
				return
			}
		}
		c.JSON(http.StatusCreated, r.table.insert(v))
	}
}

func updateHandler[T model.Entity](r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "request body must be a JSON object"})
			return
		}
		delete(patch, "id")

		updated, found, err := r.table.update(id, func(v *T) error {
			if err := merge(v, patch); err != nil {
				return err
			}
			if err := binding.Validator.ValidateStruct(v); err != nil {
				return err
			}
			if r.prepare != nil {
				return r.prepare(c, v)
			}
			return nil
		})
		switch {
		case !found:
			notFound(c, r.path, id)
		case err != nil:
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				bindError(c, err)
				return
			}
			ruleError(c, err)
		default:
			c.JSON(http.StatusOK, updated)
		}
	}
}

func deleteHandler[T model.Entity](r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if !r.table.remove(id) {
			notFound(c, r.path, id)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func approveHandler[T model.Entity](r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req model.ApprovalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		updated, found, err := r.table.update(id, func(v *T) error {
			a, ok := any(*v).(model.Approvable)
			if !ok || !a.ApprovalStatus().IsPending() {
				return businessError("only pending records can be approved or rejected")
			}
			return r.approve(v, req)
		})
		switch {
		case !found:
			notFound(c, r.path, id)
		case err != nil:
			ruleError(c, err)
		default:
			c.JSON(http.StatusOK, updated)
		}
	}
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		validationError(c, "path", "id", "must be an integer")
		return 0, false
	}
	return id, true
}

func notFound(c *gin.Context, path string, id int) {
	c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("%s %d not found", path, id)})
}

func ruleError(c *gin.Context, err error) {
	var rv *ruleViolation
	if errors.As(err, &rv) {
		c.JSON(http.StatusConflict, gin.H{"detail": rv.msg})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}
