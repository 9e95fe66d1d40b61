package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is an immutable snapshot of a provider subscription
type Subscription struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	CustomerID    string    `json:"customerId" gorm:"index"` // Corresponds to Stripe's Customer ID
	Status        Status    `json:"status"`
	StartedAt     time.Time `json:"startedAt" gorm:"index"` // Corresponds to Stripe's subscription.start_date
	PlanID        string    `json:"planId" gorm:"index"`    // Plan of the first subscription item
	Amount        int64     `json:"amount"`                 // Charged per billing period in minor currency units, summed over items and quantities
	Currency      string    `json:"currency"`               // The ISO currency code (e.g. usd)
	Interval      Interval  `json:"interval"`               // Billing Frequency (e.g. month)
	IntervalCount int64     `json:"intervalCount"`          // e.g. 3 with IntervalMonth bills every 3 months
}

// Active reports whether the subscription is in force at evaluation time
func (s Subscription) Active() bool {
	return s.Status.InForce()
}

// Paid reports whether the subscription is on a plan that charges something
func (s Subscription) Paid() bool {
	return s.Amount > 0
}

// MonthlyAmount is the subscription charge normalized to one month
func (s Subscription) MonthlyAmount() decimal.Decimal {
	return NormalizeToMonthly(s.Amount, s.Interval, s.IntervalCount)
}
