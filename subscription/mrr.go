package subscription

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Conversion factors to one month. These are fixed so that MRR stays
// comparable across plans and runs.
var (
	daysPerMonth  = decimal.RequireFromString("30.4")
	weeksPerYear  = decimal.NewFromInt(52)
	monthsPerYear = decimal.NewFromInt(12)
)

// NormalizeToMonthly converts a charge billed every `count` intervals into its monthly equivalent:
//
//	month: amount / count
//	year:  amount / (12 * count)
//	week:  amount * 52 / (12 * count)
//	day:   amount * 30.4 / count
//
// Non-positive amounts and unknown intervals contribute nothing. A non-positive count is treated as 1.
func NormalizeToMonthly(amount int64, interval Interval, count int64) decimal.Decimal {
	if amount <= 0 {
		return decimal.Zero
	}
	if count <= 0 {
		count = 1
	}
	a := decimal.NewFromInt(amount)
	n := decimal.NewFromInt(count)
	switch interval {
	case IntervalMonth:
		return a.Div(n)
	case IntervalYear:
		return a.Div(monthsPerYear.Mul(n))
	case IntervalWeek:
		return a.Mul(weeksPerYear).Div(monthsPerYear.Mul(n))
	case IntervalDay:
		return a.Mul(daysPerMonth).Div(n)
	}
	return decimal.Zero
}

// Aggregate is the count and monthly recurring revenue of a set of subscriptions
type Aggregate struct {
	Count int             `json:"count"`
	MRR   decimal.Decimal `json:"mrr"` // minor currency units per month
}

// Count is the number of subscriptions
func Count(subs []Subscription) int {
	return len(subs)
}

// MRR sums the monthly normalized amounts of the subscriptions
func MRR(subs []Subscription) decimal.Decimal {
	return lo.Reduce(subs, func(sum decimal.Decimal, s Subscription, _ int) decimal.Decimal {
		return sum.Add(s.MonthlyAmount())
	}, decimal.Zero)
}

// Summarize reduces the subscriptions to a fresh Aggregate
func Summarize(subs []Subscription) Aggregate {
	return Aggregate{
		Count: Count(subs),
		MRR:   MRR(subs),
	}
}
