package sandbox

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/Veraticus/schoolctl/internal/model"
)

// table is an in-memory collection of records keyed by id.
type table[T model.Entity] struct {
	setID  func(*T, int)
	rows   []T
	nextID int
	mu     sync.RWMutex
}

func newTable[T model.Entity](setID func(*T, int)) *table[T] {
	return &table[T]{setID: setID, nextID: 1}
}

func (t *table[T]) insert(v T) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setID(&v, t.nextID)
	t.nextID++
	t.rows = append(t.rows, v)
	return v
}

func (t *table[T]) all() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.rows)
}

func (t *table[T]) get(id int) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.rows {
		if r.EntityID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// update applies fn to record id under the write lock.
func (t *table[T]) update(id int, fn func(*T) error) (T, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.rows[i].EntityID() != id {
			continue
		}
		v := t.rows[i]
		if err := fn(&v); err != nil {
			return t.rows[i], true, err
		}
		t.setID(&v, id)
		t.rows[i] = v
		return v, true, nil
	}
	var zero T
	return zero, false, nil
}

func (t *table[T]) remove(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range t.rows {
		if r.EntityID() == id {
			t.rows = slices.Delete(t.rows, i, i+1)
			return true
		}
	}
	return false
}

// merge overlays a JSON patch onto v.
func merge[T any](v *T, patch map[string]any) error {
	base, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(base, &fields); err != nil {
		return err
	}
	for k, val := range patch {
		fields[k] = val
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	*v = out
	return nil
}
