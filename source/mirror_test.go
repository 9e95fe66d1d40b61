package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/subscription"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestMirror(t *testing.T) *Mirror {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "mirror.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	m, err := NewMirror(MirrorOptions{
		DB:     db,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return m
}

func TestNewMirrorRejectsNilDependencies(t *testing.T) {
	_, err := NewMirror(MirrorOptions{Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestMirrorSaveAndQuery(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	customers := snapshot()
	customers = append(customers, customer.Customer{
		ID:      "cus_late",
		Created: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, m.Save(ctx, customers))

	got, err := m.Customers(ctx, time.Unix(0, 0), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cus_1", got[0].ID)
	assert.Equal(t, "self-service", got[0].Metadata["channel"])
	require.Len(t, got[0].Subscriptions, 1)
	assert.Equal(t, "plan_pro", got[0].Subscriptions[0].PlanID)
	assert.Equal(t, subscription.IntervalMonth, got[0].Subscriptions[0].Interval)

	all, err := m.Customers(ctx, time.Unix(0, 0), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMirrorSaveUpserts(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, snapshot()))

	updated := snapshot()
	updated[0].Subscriptions[0].Status = subscription.StatusCanceled
	require.NoError(t, m.Save(ctx, updated))

	got, err := m.Customers(ctx, time.Unix(0, 0), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Subscriptions, 1)
	assert.Equal(t, subscription.StatusCanceled, got[0].Subscriptions[0].Status)
}

func TestMirrorSync(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	require.NoError(t, m.Sync(ctx, &countingSource{customers: snapshot()}, time.Unix(0, 0), time.Now()))
	got, err := m.Customers(ctx, time.Unix(0, 0), time.Now())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.Error(t, m.Sync(ctx, &countingSource{err: errors.New("stripe is down")}, time.Unix(0, 0), time.Now()))
}

func TestMirrorSyncRemovesCanceledSubscriptions(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()
	start, end := time.Unix(0, 0), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Sync(ctx, &countingSource{customers: snapshot()}, start, end))

	// the provider stops listing the subscription once it is canceled
	canceled := snapshot()
	canceled[0].Subscriptions = nil
	require.NoError(t, m.Sync(ctx, &countingSource{customers: canceled}, start, end))

	got, err := m.Customers(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Subscriptions)
	assert.Empty(t, subscription.Active(customer.Subscriptions(got)))
}

func TestMirrorSaveKeepsListedSubscriptions(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, snapshot()))

	replaced := snapshot()
	replaced[0].Subscriptions[0].ID = "sub_2"
	require.NoError(t, m.Save(ctx, replaced))

	got, err := m.Customers(ctx, time.Unix(0, 0), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Subscriptions, 1)
	assert.Equal(t, "sub_2", got[0].Subscriptions[0].ID)
}

func TestMirrorSyncRemovesDepartedCustomers(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()
	start, end := time.Unix(0, 0), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Sync(ctx, &countingSource{customers: snapshot()}, start, end))
	require.NoError(t, m.Sync(ctx, &countingSource{}, start, end))

	got, err := m.Customers(ctx, start, end)
	require.NoError(t, err)
	assert.Empty(t, got)

	var subs []subscription.Subscription
	require.NoError(t, m.DB.Find(&subs).Error)
	assert.Empty(t, subs)
}
