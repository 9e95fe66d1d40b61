package subscription

// Status mirrors Stripe's subscription.status
type Status string

// Defining the Stripe subscription statuses
const (
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
)

// InForce reports whether the status denotes a running, non-canceled, non-delinquent subscription
func (s Status) InForce() bool {
	return s == StatusActive || s == StatusTrialing
}

// Interval is the billing frequency of a subscription, used together with an interval count
type Interval string

// Defining the billing intervals
const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)
