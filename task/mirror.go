package task

import (
	"context"
	"fmt"
	"time"

	"github.com/zllovesuki/subpulse/spec"
	"github.com/zllovesuki/subpulse/window"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Syncer copies an upstream snapshot into local storage
type Syncer interface {
	Sync(ctx context.Context, upstream spec.Source, start, end time.Time) error
}

type MirrorOptions struct {
	Mirror   Syncer
	Upstream spec.Source
	Logger   *zap.Logger
	Interval time.Duration
	Clock    func() time.Time // Defaults to time.Now
}

// MirrorTask keeps the mirror in sync with the provider
type MirrorTask struct {
	MirrorOptions
}

func NewMirrorTask(option MirrorOptions) (*MirrorTask, error) {
	if option.Mirror == nil {
		return nil, fmt.Errorf("nil Mirror is invalid")
	}
	if option.Upstream == nil {
		return nil, fmt.Errorf("nil Upstream is invalid")
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
	return &MirrorTask{
		MirrorOptions: option,
	}, nil
}

func (t *MirrorTask) SyncOnce(ctx context.Context) error {
	if err := t.Mirror.Sync(ctx, t.Upstream, window.Epoch, t.Clock()); err != nil {
		t.Logger.Error("Cannot synchronize mirror",
			zap.Error(err),
		)
		return extErrors.Wrap(err, "Cannot synchronize mirror")
	}
	return nil
}

// Run blocks until ctx is done, syncing immediately and then every Interval
func (t *MirrorTask) Run(ctx context.Context) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	t.SyncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.SyncOnce(ctx)
		}
	}
}
