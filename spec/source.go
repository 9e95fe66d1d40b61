package spec

import (
	"context"
	"time"

	"github.com/zllovesuki/subpulse/customer"
)

// Source fetches the customer/subscription snapshot of customers created in [start, end]
type Source interface {
	Customers(ctx context.Context, start, end time.Time) ([]customer.Customer, error)
}

// PlanVerifier reports which of the given plan IDs the provider does not know about
type PlanVerifier interface {
	UnknownPlans(ctx context.Context, ids []string) ([]string, error)
}
