package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/report"
	"github.com/zllovesuki/subpulse/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixed = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	errs  []error
	nows  []time.Time
}

func (f *fakeRunner) Run(ctx context.Context, now time.Time) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.nows = append(f.nows, now)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &report.Report{RunID: "run", Now: now}, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewReportTaskValidation(t *testing.T) {
	_, err := NewReportTask(ReportOptions{Logger: zap.NewNop(), Interval: time.Second})
	assert.Error(t, err)
	_, err = NewReportTask(ReportOptions{Runner: &fakeRunner{}, Interval: time.Second})
	assert.Error(t, err)
	_, err = NewReportTask(ReportOptions{Runner: &fakeRunner{}, Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestReportTaskKeepsLastSuccessfulReport(t *testing.T) {
	runner := &fakeRunner{errs: []error{nil, errors.New("stripe is down")}}
	rt, err := NewReportTask(ReportOptions{
		Runner:   runner,
		Logger:   zap.NewNop(),
		Interval: time.Hour,
		Clock:    func() time.Time { return fixed },
	})
	require.NoError(t, err)
	assert.Nil(t, rt.Latest())

	require.NoError(t, rt.RunOnce(context.Background()))
	first := rt.Latest()
	require.NotNil(t, first)
	assert.True(t, first.Now.Equal(fixed))

	assert.Error(t, rt.RunOnce(context.Background()))
	assert.Same(t, first, rt.Latest())
}

func TestReportTaskRunsUntilCancelled(t *testing.T) {
	runner := &fakeRunner{}
	rt, err := NewReportTask(ReportOptions{
		Runner:   runner,
		Logger:   zap.NewNop(),
		Interval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rt.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return runner.count() >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not stop after cancellation")
	}
	assert.NotNil(t, rt.Latest())
}

type fakeSyncer struct {
	err   error
	calls int
	end   time.Time
}

func (f *fakeSyncer) Sync(ctx context.Context, upstream spec.Source, start, end time.Time) error {
	f.calls++
	f.end = end
	return f.err
}

type emptySource struct{}

func (emptySource) Customers(ctx context.Context, start, end time.Time) ([]customer.Customer, error) {
	return nil, nil
}

func TestMirrorTaskSyncOnce(t *testing.T) {
	syncer := &fakeSyncer{}
	mt, err := NewMirrorTask(MirrorOptions{
		Mirror:   syncer,
		Upstream: emptySource{},
		Logger:   zap.NewNop(),
		Interval: time.Hour,
		Clock:    func() time.Time { return fixed },
	})
	require.NoError(t, err)

	require.NoError(t, mt.SyncOnce(context.Background()))
	assert.Equal(t, 1, syncer.calls)
	assert.True(t, syncer.end.Equal(fixed))

	syncer.err = errors.New("database is locked")
	assert.Error(t, mt.SyncOnce(context.Background()))
}
