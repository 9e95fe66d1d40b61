package customer

import (
	"time"

	"github.com/zllovesuki/subpulse/subscription"

	"github.com/samber/lo"
)

// Customer describes a billing provider customer and the subscriptions it holds
type Customer struct {
	ID            string                      `json:"id" gorm:"primaryKey"` // Corresponds to Stripe's customer ID
	Email         string                      `json:"email"`
	Created       time.Time                   `json:"created" gorm:"index"`
	Metadata      map[string]string           `json:"metadata" gorm:"serializer:json"`
	Subscriptions []subscription.Subscription `json:"subscriptions" gorm:"foreignKey:CustomerID"`
}

// Predicate selects customers, e.g. only the ones that signed up via self-service
type Predicate func(c Customer) bool

// Filter keeps the customers matching the predicate. A nil predicate keeps everyone.
func Filter(customers []Customer, predicate Predicate) []Customer {
	if predicate == nil {
		return customers
	}
	return lo.Filter(customers, func(c Customer, _ int) bool {
		return predicate(c)
	})
}

// Subscriptions flattens the subscriptions of the customers, in customer order
func Subscriptions(customers []Customer) []subscription.Subscription {
	subs := make([]subscription.Subscription, 0, len(customers))
	for _, c := range customers {
		subs = append(subs, c.Subscriptions...)
	}
	return subs
}

// MetadataEquals matches customers whose metadata has the given key set to value
func MetadataEquals(key, value string) Predicate {
	return func(c Customer) bool {
		return c.Metadata[key] == value
	}
}
