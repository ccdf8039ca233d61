package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func TestOption_LabelPrefersDescription(t *testing.T) {
	assert.Equal(t, "Present in class", Option{Name: "P", Description: "Present in class"}.Label())
	assert.Equal(t, "P", Option{Name: "P"}.Label())
	assert.Equal(t, "4", Option{ID: 4}.Value())
}

func TestConfigBag_LabelFor(t *testing.T) {
	bag := ConfigBag{
		Statuses: []Option{{ID: 1, Name: "present", Description: "Present"}, {ID: 2, Name: "absent"}},
	}

	assert.Equal(t, "Present", bag.LabelFor(OptionStatuses, 1))
	assert.Equal(t, "absent", bag.LabelFor(OptionStatuses, 2))
	assert.Equal(t, "9", bag.LabelFor(OptionStatuses, 9))
	assert.Nil(t, bag.Options(OptionSet("unknown")))
}

func TestActiveOptions(t *testing.T) {
	opts := []Option{{ID: 1, IsActive: true}, {ID: 2}, {ID: 3, IsActive: true}}
	active := ActiveOptions(opts)
	assert.Len(t, active, 2)
	assert.Equal(t, 3, active[1].ID)
}

func TestLeaveRequest_Days(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{name: "single day", start: "2024-03-01", end: "2024-03-01", want: 1},
		{name: "week", start: "2024-03-01", end: "2024-03-07", want: 7},
		{name: "inverted", start: "2024-03-07", end: "2024-03-01", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LeaveRequest{StartDate: mustDate(t, tt.start), EndDate: mustDate(t, tt.end)}
			assert.Equal(t, tt.want, l.Days())
		})
	}
	assert.Equal(t, 0, LeaveRequest{}.Days())
}

func TestTransportEnrollment_AmountDue(t *testing.T) {
	fee := decimal.RequireFromString("45.50")
	active := TransportEnrollment{StartDate: mustDate(t, "2024-01-15"), MonthlyFee: fee, Status: "Active"}
	ended := TransportEnrollment{StartDate: mustDate(t, "2024-01-15"), EndDate: mustDate(t, "2024-02-10"), MonthlyFee: fee}
	through := mustDate(t, "2024-04-01")

	assert.Equal(t, 4, active.BilledMonths(through))
	assert.True(t, active.AmountDue(through).Equal(decimal.RequireFromString("182")))
	assert.Equal(t, 2, ended.BilledMonths(through))
	assert.True(t, active.Active())
	assert.False(t, ended.Active())
	assert.Equal(t, 0, TransportEnrollment{}.BilledMonths(through))
}

func TestStockMovement_Total(t *testing.T) {
	m := StockMovement{Quantity: 3, UnitCost: decimal.RequireFromString("2.25")}
	assert.Equal(t, "6.75", m.Total().StringFixed(2))
}

func TestDecision(t *testing.T) {
	assert.True(t, DecisionApproved.Valid())
	assert.False(t, Decision("maybe").Valid())
	assert.Equal(t, StatusRejected, DecisionRejected.Status())
	assert.Equal(t, StatusApproved, DecisionApproved.Status())
	assert.True(t, StatusPending.IsPending())
	assert.False(t, StatusApproved.IsPending())
}

func TestProgressionAction_Valid(t *testing.T) {
	assert.True(t, ActionPromoted.Valid())
	assert.True(t, ActionDemoted.Valid())
	assert.False(t, ProgressionAction("Graduated").Valid())
}
