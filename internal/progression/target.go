package progression

import (
	"cmp"
	"slices"

	"github.com/Veraticus/schoolctl/internal/model"
)

// TargetClass returns the class a student in class current ends up in after
// action. Promotion moves one class up and demotion one class down by Order;
// a student already at the top or bottom stays where they are. The second
// result is false when current is not in classes.
func TargetClass(classes []model.Class, current int, action model.ProgressionAction) (model.Class, bool) {
	sorted := slices.SortedFunc(slices.Values(classes), func(a, b model.Class) int {
		return cmp.Compare(a.Order, b.Order)
	})
	i := slices.IndexFunc(sorted, func(c model.Class) bool { return c.ID == current })
	if i < 0 {
		return model.Class{}, false
	}

	switch action {
	case model.ActionPromoted:
		i = min(i+1, len(sorted)-1)
	case model.ActionDemoted:
		i = max(i-1, 0)
	}
	return sorted[i], true
}
