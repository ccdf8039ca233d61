package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilters_Coercion(t *testing.T) {
	f := NewFilters(
		Field{Name: "class_id", Kind: KindID},
		Field{Name: "date_from", Kind: KindDate},
		Field{Name: "movement_type", Kind: KindChoice, Choices: []string{"in", "out", "adjustment"}},
	)

	tests := []struct {
		name    string
		field   string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "numeric id", field: "class_id", raw: " 012 ", want: "12"},
		{name: "bad id", field: "class_id", raw: "abc", wantErr: true},
		{name: "date", field: "date_from", raw: "2025-02-03", want: "2025-02-03"},
		{name: "bad date", field: "date_from", raw: "03/02/2025", wantErr: true},
		{name: "choice folds case", field: "movement_type", raw: "OUT", want: "out"},
		{name: "bad choice", field: "movement_type", raw: "sideways", wantErr: true},
		{name: "search is text", field: SearchField, raw: "ada", want: "ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Set(tt.field, tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFilter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Get(tt.field))
		})
	}
}

func TestFilters_ChangeDetection(t *testing.T) {
	f := NewFilters(Field{Name: "class_id", Kind: KindID})

	changed, err := f.Set("class_id", "3")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, _ = f.Set("class_id", "3")
	assert.False(t, changed)

	changed, _ = f.Set("class_id", AllValue)
	assert.True(t, changed)
	assert.Empty(t, f.Values())

	f.TypeSearch("  ada ")
	assert.True(t, f.CommitSearch())
	assert.Equal(t, "ada", f.Get(SearchField))
	assert.True(t, f.Reset())
	assert.False(t, f.Reset())
	assert.Len(t, f.Fields(), 1)
}

func TestQuery_WireValues(t *testing.T) {
	q := Query{
		Filters: map[string]string{"status": "Absent", "class_id": "2"},
		Params:  map[string]string{"status": "Present"},
		Page:    PageRequest{Index: 0, Size: 25},
	}

	one := q.WireValues(1)
	assert.Equal(t, "1", one.Get("page"))
	assert.Equal(t, "25", one.Get("per_page"))
	assert.Equal(t, "Present", one.Get("status"), "tab params override filters")
	assert.Equal(t, "2", one.Get("class_id"))

	zero := q.WireValues(0)
	assert.Equal(t, "0", zero.Get("page"))
}

func TestPage_Normalize(t *testing.T) {
	p, truncated := Page[int]{Items: []int{1, 2, 3}, Total: 1}.normalize(2)
	assert.True(t, truncated)
	assert.Equal(t, []int{1, 2}, p.Items)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 1, p.TotalPages)

	p, _ = Page[int]{Items: []int{1}, Total: 51, TotalPages: 0}.normalize(25)
	assert.Equal(t, 3, p.TotalPages)
}

func TestFilters_SetAllIsAllOrNothing(t *testing.T) {
	f := NewFilters(
		Field{Name: "class_id", Kind: KindID},
		Field{Name: "date_from", Kind: KindDate},
	)

	_, err := f.SetAll(map[string]string{"date_from": "2024-01-01", "class_id": "abc"})
	require.ErrorIs(t, err, ErrInvalidFilter)
	assert.Empty(t, f.Values())

	_, err = f.SetAll(map[string]string{"date_from": "2024-01-01", "room": "4"})
	require.ErrorIs(t, err, ErrUnknownFilter)
	assert.Empty(t, f.Values())

	changed, err := f.SetAll(map[string]string{"date_from": "2024-01-01", "class_id": "3", SearchField: "ada"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, map[string]string{"date_from": "2024-01-01", "class_id": "3", SearchField: "ada"}, f.Values())
	assert.Equal(t, "ada", f.PendingSearch())
}
