package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_ToggleRemovesValue(t *testing.T) {
	s := NewSelection[int, string]()

	assert.True(t, s.Toggle(4, "promote"))
	assert.True(t, s.Set(4, "retain"))
	assert.False(t, s.Toggle(4, "ignored"))

	_, ok := s.Get(4)
	assert.False(t, ok)
	assert.False(t, s.Set(4, "retain"), "deselected keys cannot be assigned")

	assert.True(t, s.Toggle(4, "promote"))
	v, _ := s.Get(4)
	assert.Equal(t, "promote", v)
}

func TestSelection_ToggleAll(t *testing.T) {
	s := NewSelection[int, string]()
	s.Toggle(2, "retain")

	s.ToggleAll([]int{3, 1, 2}, "promote")
	assert.Equal(t, []int{1, 2, 3}, s.Keys())
	v, _ := s.Get(2)
	assert.Equal(t, "retain", v)

	s.ToggleAll([]int{1, 2, 3}, "promote")
	assert.Equal(t, 0, s.Len())

	s.ToggleAll(nil, "promote")
	assert.Equal(t, 0, s.Len())
}
