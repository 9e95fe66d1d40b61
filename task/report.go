package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zllovesuki/subpulse/report"

	"go.uber.org/zap"
)

var _ report.Provider = &ReportTask{}

// Runner computes and emits one report
type Runner interface {
	Run(ctx context.Context, now time.Time) (*report.Report, error)
}

type ReportOptions struct {
	Runner   Runner
	Logger   *zap.Logger
	Interval time.Duration
	Clock    func() time.Time // Defaults to time.Now
}

// ReportTask runs the report periodically and keeps the last successful one
type ReportTask struct {
	ReportOptions

	mu     sync.RWMutex
	latest *report.Report
}

func NewReportTask(option ReportOptions) (*ReportTask, error) {
	if option.Runner == nil {
		return nil, fmt.Errorf("nil Runner is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Interval <= 0 {
		return nil, fmt.Errorf("non-positive Interval is invalid")
	}
	if option.Clock == nil {
		option.Clock = time.Now
	}
	return &ReportTask{
		ReportOptions: option,
	}, nil
}

// Latest returns the last successful report, nil before the first one
func (t *ReportTask) Latest() *report.Report {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// RunOnce computes a report now. A failed run keeps the previous report.
func (t *ReportTask) RunOnce(ctx context.Context) error {
	r, err := t.Runner.Run(ctx, t.Clock())
	if err != nil {
		t.Logger.Error("Cannot compute report",
			zap.Error(err),
		)
		return err
	}
	t.mu.Lock()
	t.latest = r
	t.mu.Unlock()
	return nil
}

// Run blocks until ctx is done, computing a report immediately and then every Interval
func (t *ReportTask) Run(ctx context.Context) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	t.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}
