package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_AutoDismiss(t *testing.T) {
	clock := NewManualClock(testEpoch)
	n := NewNotifier(clock, 6*time.Second)

	n.Success("Saved")
	assert.True(t, n.Current().Visible)

	clock.Advance(5 * time.Second)
	assert.True(t, n.Current().Visible)

	clock.Advance(time.Second)
	assert.False(t, n.Current().Visible)
	assert.Equal(t, "Saved", n.Current().Text)
}

func TestNotifier_OldTimerDoesNotDismissReplacement(t *testing.T) {
	clock := NewManualClock(testEpoch)
	n := NewNotifier(clock, 6*time.Second)

	n.Success("first")
	clock.Advance(4 * time.Second)
	n.Error("second")

	clock.Advance(3 * time.Second)
	cur := n.Current()
	assert.True(t, cur.Visible)
	assert.Equal(t, "second", cur.Text)
	assert.Equal(t, SeverityError, cur.Severity)

	clock.Advance(3 * time.Second)
	assert.False(t, n.Current().Visible)
}

func TestNotifier_ManualDismissAndListeners(t *testing.T) {
	clock := NewManualClock(testEpoch)
	n := NewNotifier(clock, 0)

	var seen []Notification
	n.OnChange(func(cur Notification) { seen = append(seen, cur) })

	n.Warning("careful")
	n.Dismiss()
	n.Dismiss()
	clock.Advance(DefaultNotificationTTL)

	if assert.Len(t, seen, 2) {
		assert.True(t, seen[0].Visible)
		assert.False(t, seen[1].Visible)
	}
	assert.Equal(t, 0, clock.Pending())
}
