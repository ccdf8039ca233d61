package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/schoolctl/internal/model"
)

func TestTargetClass(t *testing.T) {
	// Deliberately unsorted: Order decides adjacency, not position or id.
	classes := []model.Class{
		{ID: 30, Name: "Form 3", Order: 3},
		{ID: 10, Name: "Form 1", Order: 1},
		{ID: 40, Name: "Form 4", Order: 4},
		{ID: 20, Name: "Form 2", Order: 2},
	}

	tests := []struct {
		name    string
		current int
		action  model.ProgressionAction
		want    string
		found   bool
	}{
		{"promote", 10, model.ActionPromoted, "Form 2", true},
		{"demote", 30, model.ActionDemoted, "Form 2", true},
		{"retain", 20, model.ActionRetained, "Form 2", true},
		{"promote at top clamps", 40, model.ActionPromoted, "Form 4", true},
		{"demote at bottom clamps", 10, model.ActionDemoted, "Form 1", true},
		{"unknown class", 99, model.ActionPromoted, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TargetClass(classes, tt.current, tt.action)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
	assert.Equal(t, 30, classes[0].ID, "input order is left alone")
}
