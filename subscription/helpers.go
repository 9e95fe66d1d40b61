package subscription

import (
	"time"

	"github.com/stripe/stripe-go/v72"
)

// FromStripe converts a Stripe subscription into a Subscription snapshot.
// Stripe requires every item of a subscription to share the same interval, so the
// interval and plan come from the first item while the amount sums all of them.
func FromStripe(sub *stripe.Subscription) Subscription {
	s := Subscription{
		ID:        sub.ID,
		Status:    Status(sub.Status),
		StartedAt: time.Unix(sub.StartDate, 0),
	}
	if sub.Customer != nil {
		s.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		for _, item := range sub.Items.Data {
			if item == nil || item.Plan == nil {
				continue
			}
			if s.PlanID == "" {
				s.applyPlan(item.Plan)
			}
			s.Amount += item.Plan.Amount * quantity(item.Quantity)
		}
		return s
	}

	// legacy single plan subscriptions
	if sub.Plan != nil {
		s.applyPlan(sub.Plan)
		s.Amount = sub.Plan.Amount * quantity(sub.Quantity)
	}
	return s
}

func (s *Subscription) applyPlan(p *stripe.Plan) {
	s.PlanID = p.ID
	s.Currency = string(p.Currency)
	s.Interval = Interval(p.Interval)
	s.IntervalCount = p.IntervalCount
}

func quantity(q int64) int64 {
	if q <= 0 {
		return 1
	}
	return q
}
