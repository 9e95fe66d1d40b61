package subscription

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeToMonthly(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		interval Interval
		count    int64
		want     string
	}{
		{name: "monthly", amount: 2900, interval: IntervalMonth, count: 1, want: "2900"},
		{name: "quarterly", amount: 9000, interval: IntervalMonth, count: 3, want: "3000"},
		{name: "yearly", amount: 1200, interval: IntervalYear, count: 1, want: "100"},
		{name: "every two years", amount: 4800, interval: IntervalYear, count: 2, want: "200"},
		{name: "weekly", amount: 300, interval: IntervalWeek, count: 1, want: "1300"},
		{name: "daily", amount: 10, interval: IntervalDay, count: 1, want: "304"},
		{name: "every other day", amount: 10, interval: IntervalDay, count: 2, want: "152"},
		{name: "zero count treated as one", amount: 500, interval: IntervalMonth, count: 0, want: "500"},
		{name: "free", amount: 0, interval: IntervalMonth, count: 1, want: "0"},
		{name: "credit", amount: -500, interval: IntervalMonth, count: 1, want: "0"},
		{name: "unknown interval", amount: 500, interval: Interval("fortnight"), count: 1, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeToMonthly(tt.amount, tt.interval, tt.count)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestYearlyAndMonthlyAreEquivalent(t *testing.T) {
	yearly := NormalizeToMonthly(1200, IntervalYear, 1)
	monthly := NormalizeToMonthly(100, IntervalMonth, 1)
	assert.True(t, yearly.Equal(monthly))
	assert.Equal(t, "100", yearly.String())
}

func TestSummarizeEmptySet(t *testing.T) {
	agg := Summarize(nil)
	assert.Equal(t, 0, agg.Count)
	assert.True(t, agg.MRR.IsZero())
}

func TestSummarizeIsNonNegative(t *testing.T) {
	agg := Summarize(fixtures())
	assert.Equal(t, 6, agg.Count)
	assert.False(t, agg.MRR.IsNegative())
}

func TestMRRMixesIntervals(t *testing.T) {
	subs := []Subscription{
		{Amount: 2900, Interval: IntervalMonth, IntervalCount: 1},
		{Amount: 12000, Interval: IntervalYear, IntervalCount: 1},
	}
	assert.Equal(t, "3900", MRR(subs).String())
}
