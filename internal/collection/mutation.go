package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

// Mutation errors.
var (
	ErrUnsupported          = errors.New("operation not supported by this collection")
	ErrConfirmationRequired = errors.New("delete requires a confirmer")
	ErrInvalidDecision      = errors.New("decision must be approved or rejected")
)

// Mutator performs writes against a remote collection.
type Mutator[T any] interface {
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, id int, patch map[string]any) (T, error)
	Delete(ctx context.Context, id int) error
	Approve(ctx context.Context, id int, req model.ApprovalRequest) (T, error)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every prompt, as used by --force.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Dispatcher runs a write, reports its outcome through the notifier and
// refetches the page that was showing when the write was requested.
type Dispatcher[T any] struct {
	mutator  Mutator[T]
	notes    *Notifier
	snapshot func() Query
	refetch  func(ctx context.Context, q Query) error
	report   func(err error)
	deleted  func(q Query) Query
	label    string
}

// NewDispatcher wires a dispatcher. snapshot returns the current query,
// refetch reloads a query and report surfaces a failure to the user.
func NewDispatcher[T any](
	label string,
	mutator Mutator[T],
	notes *Notifier,
	snapshot func() Query,
	refetch func(ctx context.Context, q Query) error,
	report func(err error),
) *Dispatcher[T] {
	return &Dispatcher[T]{
		label:    label,
		mutator:  mutator,
		notes:    notes,
		snapshot: snapshot,
		refetch:  refetch,
		report:   report,
	}
}

// AdjustAfterDelete sets how the refetch query changes once a delete has
// succeeded.
func (d *Dispatcher[T]) AdjustAfterDelete(fn func(q Query) Query) {
	d.deleted = fn
}

// Create adds entity to the collection.
func (d *Dispatcher[T]) Create(ctx context.Context, entity T) (T, error) {
	q := d.snapshot()
	created, err := d.mutator.Create(ctx, entity)
	if err != nil {
		return created, d.fail("create", err)
	}
	d.succeed(ctx, q, fmt.Sprintf("%s created", d.label))
	return created, nil
}

// Update applies a partial update to record id.
func (d *Dispatcher[T]) Update(ctx context.Context, id int, patch map[string]any) (T, error) {
	q := d.snapshot()
	updated, err := d.mutator.Update(ctx, id, patch)
	if err != nil {
		return updated, d.fail("update", err)
	}
	d.succeed(ctx, q, fmt.Sprintf("%s #%d updated", d.label, id))
	return updated, nil
}

// Delete removes record id after the confirmer agrees. It reports whether
// the record was deleted; a declined prompt makes no request.
func (d *Dispatcher[T]) Delete(ctx context.Context, id int, confirm Confirmer) (bool, error) {
	if confirm == nil {
		return false, ErrConfirmationRequired
	}
	q := d.snapshot()

	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Delete %s #%d? This cannot be undone.", d.label, id))
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		common.LogDebug("delete declined", common.Fields{"label": d.label, "id": id})
		return false, nil
	}

	if err := d.mutator.Delete(ctx, id); err != nil {
		return false, d.fail("delete", err)
	}
	if d.deleted != nil {
		q = d.deleted(q)
	}
	d.succeed(ctx, q, fmt.Sprintf("%s #%d deleted", d.label, id))
	return true, nil
}

// Approve records a decision on record id.
func (d *Dispatcher[T]) Approve(ctx context.Context, id int, req model.ApprovalRequest) (T, error) {
	var zero T
	if !req.Decision.Valid() {
		return zero, fmt.Errorf("%w: got %q", ErrInvalidDecision, req.Decision)
	}
	q := d.snapshot()
	result, err := d.mutator.Approve(ctx, id, req)
	if err != nil {
		return result, d.fail("approve", err)
	}
	d.succeed(ctx, q, fmt.Sprintf("%s #%d %s", d.label, id, req.Decision))
	return result, nil
}

func (d *Dispatcher[T]) succeed(ctx context.Context, q Query, msg string) {
	d.notes.Success(msg)
	if err := d.refetch(ctx, q); err != nil && !errors.Is(err, ErrSuperseded) {
		common.LogWarn("refetch after mutation failed", common.Fields{"label": d.label, "error": err.Error()})
	}
}

func (d *Dispatcher[T]) fail(op string, err error) error {
	common.LogError(err, "mutation failed", common.Fields{"label": d.label, "op": op})
	d.report(err)
	return fmt.Errorf("%s %s: %w", op, d.label, err)
}
