package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/spec"
	"github.com/zllovesuki/subpulse/subscription"

	"github.com/cenkalti/backoff/v4"
	extErrors "github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
)

var _ spec.Source = &Stripe{}
var _ spec.PlanVerifier = &Stripe{}

const defaultRetries uint64 = 4

// StripeOptions contains the configuration for the Stripe source
type StripeOptions struct {
	Client  *client.API
	Logger  *zap.Logger
	Retries uint64 // Retries of a failed list call. Defaults to 4
}

// Stripe reads customers and their subscriptions from the Stripe API
type Stripe struct {
	StripeOptions

	listCustomers     func(ctx context.Context, start, end time.Time) ([]*stripe.Customer, error)
	listSubscriptions func(ctx context.Context) ([]*stripe.Subscription, error)
	getPlan           func(ctx context.Context, id string) (*stripe.Plan, error)
	newBackOff        func() backoff.BackOff
}

// NewStripe returns a Source backed by the Stripe API
func NewStripe(option StripeOptions) (*Stripe, error) {
	if option.Client == nil {
		return nil, fmt.Errorf("nil Client is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Retries == 0 {
		option.Retries = defaultRetries
	}
	s := &Stripe{
		StripeOptions: option,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	s.listCustomers = s.customersFromAPI
	s.listSubscriptions = s.subscriptionsFromAPI
	s.getPlan = s.planFromAPI
	return s, nil
}

func (s *Stripe) customersFromAPI(ctx context.Context, start, end time.Time) ([]*stripe.Customer, error) {
	params := &stripe.CustomerListParams{
		ListParams: stripe.ListParams{
			Context: ctx,
		},
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: start.Unix(),
			LesserThanOrEqual:  end.Unix(),
		},
	}
	params.AddExpand("data.subscriptions")

	customers := make([]*stripe.Customer, 0)
	iter := s.Client.Customers.List(params)
	for iter.Next() {
		customers = append(customers, iter.Customer())
	}
	return customers, iter.Err()
}

func (s *Stripe) subscriptionsFromAPI(ctx context.Context) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{
			Context: ctx,
		},
	}
	subs := make([]*stripe.Subscription, 0)
	iter := s.Client.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	return subs, iter.Err()
}

func (s *Stripe) planFromAPI(ctx context.Context, id string) (*stripe.Plan, error) {
	return s.Client.Plans.Get(id, &stripe.PlanParams{
		Params: stripe.Params{
			Context: ctx,
		},
	})
}

func statusCode(err error) int {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode
	}
	return 0
}

// client errors will fail the same way again, except for rate limiting
func classify(err error) error {
	code := statusCode(err)
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

func (s *Stripe) retry(ctx context.Context, what string, op func() error) error {
	logger := s.Logger.With(zap.String("Operation", what))
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.Retries), ctx)
	return backoff.RetryNotify(func() error {
		return classify(op())
	}, b, func(err error, wait time.Duration) {
		logger.Warn("Stripe request failed, retrying",
			zap.Error(err),
			zap.Duration("Wait", wait),
		)
	})
}

// Customers lists the customers created in [start, end] with their subscriptions
func (s *Stripe) Customers(ctx context.Context, start, end time.Time) ([]customer.Customer, error) {
	var raw []*stripe.Customer
	if err := s.retry(ctx, "list customers", func() (err error) {
		raw, err = s.listCustomers(ctx, start, end)
		return
	}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot list customers from Stripe")
	}

	// expanded lists are truncated, fetch everything once if any customer needs more
	var remaining map[string][]subscription.Subscription
	if lo.SomeBy(raw, truncated) {
		var subs []*stripe.Subscription
		if err := s.retry(ctx, "list subscriptions", func() (err error) {
			subs, err = s.listSubscriptions(ctx)
			return
		}); err != nil {
			return nil, extErrors.Wrap(err, "Cannot list subscriptions from Stripe")
		}
		remaining = lo.GroupBy(lo.Map(subs, func(sub *stripe.Subscription, _ int) subscription.Subscription {
			return subscription.FromStripe(sub)
		}), func(sub subscription.Subscription) string {
			return sub.CustomerID
		})
	}

	customers := make([]customer.Customer, 0, len(raw))
	for _, c := range raw {
		cust := FromStripe(c)
		if truncated(c) {
			cust.Subscriptions = remaining[c.ID]
		}
		customers = append(customers, cust)
	}

	s.Logger.Debug("Fetched snapshot from Stripe",
		zap.Int("Customers", len(customers)),
		zap.Bool("Paginated", remaining != nil),
	)
	return customers, nil
}

func truncated(c *stripe.Customer) bool {
	return c.Subscriptions != nil && c.Subscriptions.HasMore
}

// FromStripe converts a Stripe customer and its expanded subscriptions
func FromStripe(c *stripe.Customer) customer.Customer {
	cust := customer.Customer{
		ID:       c.ID,
		Email:    c.Email,
		Created:  time.Unix(c.Created, 0),
		Metadata: c.Metadata,
	}
	if c.Subscriptions == nil {
		return cust
	}
	cust.Subscriptions = make([]subscription.Subscription, 0, len(c.Subscriptions.Data))
	for _, sub := range c.Subscriptions.Data {
		if sub == nil {
			continue
		}
		converted := subscription.FromStripe(sub)
		if converted.CustomerID == "" {
			converted.CustomerID = c.ID
		}
		cust.Subscriptions = append(cust.Subscriptions, converted)
	}
	return cust
}

// UnknownPlans returns the IDs Stripe answers with 404
func (s *Stripe) UnknownPlans(ctx context.Context, ids []string) ([]string, error) {
	unknown := make([]string, 0)
	for _, id := range ids {
		err := s.retry(ctx, "get plan", func() error {
			_, err := s.getPlan(ctx, id)
			return err
		})
		if err == nil {
			continue
		}
		if statusCode(err) == http.StatusNotFound {
			unknown = append(unknown, id)
			continue
		}
		return nil, extErrors.Wrapf(err, "Cannot get plan \"%s\" from Stripe", id)
	}
	return unknown, nil
}
