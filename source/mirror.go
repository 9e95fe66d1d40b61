package source

import (
	"context"
	"fmt"
	"time"

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/spec"
	"github.com/zllovesuki/subpulse/subscription"

	extErrors "github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ spec.Source = &Mirror{}

// MirrorOptions contains the configuration for the database mirror
type MirrorOptions struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// Mirror is a database copy of the provider's customers and subscriptions.
// Reports can run against it without reaching the provider.
type Mirror struct {
	MirrorOptions
}

// NewMirror returns a Mirror and migrates its tables
func NewMirror(option MirrorOptions) (*Mirror, error) {
	if option.DB == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := option.DB.AutoMigrate(&customer.Customer{}, &subscription.Subscription{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot migrate mirror tables")
	}
	return &Mirror{
		MirrorOptions: option,
	}, nil
}

// Customers returns the mirrored customers created in [start, end] with their subscriptions
func (m *Mirror) Customers(ctx context.Context, start, end time.Time) ([]customer.Customer, error) {
	var customers []customer.Customer
	result := m.DB.WithContext(ctx).
		Preload("Subscriptions", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at, id")
		}).
		Where("created >= ? AND created <= ?", start, end).
		Order("created, id").
		Find(&customers)
	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot query mirrored customers")
	}
	return customers, nil
}

// Save upserts the customers and their subscriptions in one transaction.
// Mirrored subscriptions of these customers that are missing from the snapshot
// are removed, since the provider stops listing canceled subscriptions.
func (m *Mirror) Save(ctx context.Context, customers []customer.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	return m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return save(tx, customers)
	})
}

func save(tx *gorm.DB, customers []customer.Customer) error {
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
		Omit(clause.Associations).
		Create(&customers).Error; err != nil {
		return extErrors.Wrap(err, "Cannot save customers")
	}

	subs := customer.Subscriptions(customers)
	stale := tx.Where("customer_id IN ?", customerIDs(customers))
	if len(subs) > 0 {
		stale = stale.Where("id NOT IN ?", lo.Map(subs, func(s subscription.Subscription, _ int) string {
			return s.ID
		}))
	}
	if err := stale.Delete(&subscription.Subscription{}).Error; err != nil {
		return extErrors.Wrap(err, "Cannot remove stale subscriptions")
	}

	if len(subs) == 0 {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&subs).Error; err != nil {
		return extErrors.Wrap(err, "Cannot save subscriptions")
	}
	return nil
}

// prune removes mirrored customers created in [start, end] that are not in keep,
// together with their subscriptions
func prune(tx *gorm.DB, start, end time.Time, keep []customer.Customer) (int, error) {
	query := tx.Model(&customer.Customer{}).
		Where("created >= ? AND created <= ?", start, end)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", customerIDs(keep))
	}
	var gone []string
	if err := query.Pluck("id", &gone).Error; err != nil {
		return 0, extErrors.Wrap(err, "Cannot find departed customers")
	}
	if len(gone) == 0 {
		return 0, nil
	}
	if err := tx.Where("customer_id IN ?", gone).Delete(&subscription.Subscription{}).Error; err != nil {
		return 0, extErrors.Wrap(err, "Cannot remove subscriptions of departed customers")
	}
	if err := tx.Where("id IN ?", gone).Delete(&customer.Customer{}).Error; err != nil {
		return 0, extErrors.Wrap(err, "Cannot remove departed customers")
	}
	return len(gone), nil
}

func customerIDs(customers []customer.Customer) []string {
	return lo.Map(customers, func(c customer.Customer, _ int) string {
		return c.ID
	})
}

// Sync makes the mirror match the snapshot of upstream for [start, end].
// Customers in the range that upstream no longer lists are removed.
func (m *Mirror) Sync(ctx context.Context, upstream spec.Source, start, end time.Time) error {
	customers, err := upstream.Customers(ctx, start, end)
	if err != nil {
		return extErrors.Wrap(err, "Cannot fetch snapshot to mirror")
	}
	var removed int
	err = m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(customers) > 0 {
			if err := save(tx, customers); err != nil {
				return err
			}
		}
		removed, err = prune(tx, start, end, customers)
		return err
	})
	if err != nil {
		return err
	}
	m.Logger.Info("Mirror synchronized",
		zap.Int("Customers", len(customers)),
		zap.Int("Removed", removed),
	)
	return nil
}
