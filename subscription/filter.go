package subscription

import (
	"time"

	"github.com/samber/lo"
)

// Each filter returns a new slice and leaves its input untouched, so filters
// can be composed in any order with the same result.

// Active keeps subscriptions that are in force (active or trialing)
func Active(subs []Subscription) []Subscription {
	return lo.Filter(subs, func(s Subscription, _ int) bool {
		return s.Active()
	})
}

// Paid keeps subscriptions with a non-zero charge, dropping free plans
func Paid(subs []Subscription) []Subscription {
	return lo.Filter(subs, func(s Subscription, _ int) bool {
		return s.Paid()
	})
}

// StartedBetween keeps subscriptions whose start falls in [start, end)
func StartedBetween(subs []Subscription, start, end time.Time) []Subscription {
	return lo.Filter(subs, func(s Subscription, _ int) bool {
		return !s.StartedAt.Before(start) && s.StartedAt.Before(end)
	})
}

// ByPlan keeps subscriptions on the given plan
func ByPlan(subs []Subscription, planID string) []Subscription {
	return lo.Filter(subs, func(s Subscription, _ int) bool {
		return s.PlanID == planID
	})
}
