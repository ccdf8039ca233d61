package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/model"
)

// Resource names on the wire.
const (
	ResourceAttendance = "attendance"
	ResourceLeave      = "leave-requests"
	ResourcePricing    = "pricing"
	ResourcePurchases  = "purchases"
	ResourceStock      = "stock-movements"
	ResourceTransport  = "transport-enrollments"
	ResourceStudents   = "students"
	ResourceTeachers   = "teachers"
)

type listEnvelope[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Resource is a typed collection endpoint. It satisfies both
// collection.Source and collection.Mutator.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a resource path to a client.
func NewResource[T any](client *Client, path string) *Resource[T] {
	return &Resource[T]{client: client, path: path}
}

// Path returns the resource path.
func (r *Resource[T]) Path() string { return r.path }

// List fetches one page. The 0-based page index in q is translated to the
// client's wire page base here and nowhere else.
func (r *Resource[T]) List(ctx context.Context, q collection.Query) (collection.Page[T], error) {
	var env listEnvelope[T]
	if err := r.client.do(ctx, http.MethodGet, r.path, q.WireValues(r.client.pageBase), nil, &env); err != nil {
		return collection.Page[T]{}, err
	}
	return collection.Page[T]{Items: env.Items, Total: env.Total, TotalPages: env.TotalPages}, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id int) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodGet, r.item(id), nil, nil, &out)
	return out, err
}

// Create posts a new record and returns the server's copy.
func (r *Resource[T]) Create(ctx context.Context, entity T) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPost, r.path, nil, entity, &out)
	return out, err
}

// Update sends a partial update.
func (r *Resource[T]) Update(ctx context.Context, id int, patch map[string]any) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPatch, r.item(id), nil, patch, &out)
	return out, err
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id int) error {
	return r.client.do(ctx, http.MethodDelete, r.item(id), nil, nil, nil)
}

// Approve records a decision on an approvable record.
func (r *Resource[T]) Approve(ctx context.Context, id int, req model.ApprovalRequest) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPost, r.item(id)+"/approve", nil, req, &out)
	return out, err
}

func (r *Resource[T]) item(id int) string {
	return fmt.Sprintf("%s/%s", r.path, strconv.Itoa(id))
}
