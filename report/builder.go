package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/spec"
	"github.com/zllovesuki/subpulse/subscription"
	"github.com/zllovesuki/subpulse/window"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
)

// Options contains the configuration for a Builder
type Options struct {
	Source   spec.Source
	Sink     spec.Sink         // Required by Run only
	Verifier spec.PlanVerifier // Optional. Used by Verify to reject unknown plan IDs
	Logger   *zap.Logger

	Windows  []window.Definition
	Plans    subscription.Plans
	Filter   customer.Predicate
	Location *time.Location // Business time zone for calendar days. Defaults to time.Local
	Parallel bool           // Compute window definitions concurrently
}

// Builder computes reports over a window list against one snapshot per run
type Builder struct {
	Options
	plans []subscription.Plan
}

// NewBuilder validates the configuration and returns a Builder.
// Configuration problems are returned as *ConfigError.
func NewBuilder(option Options) (*Builder, error) {
	if option.Source == nil {
		return nil, fmt.Errorf("nil Source is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Location == nil {
		option.Location = time.Local
	}
	if err := validate(option); err != nil {
		return nil, err
	}
	return &Builder{
		Options: option,
		plans:   option.Plans.Sorted(),
	}, nil
}

func validate(option Options) error {
	if len(option.Windows) == 0 {
		return &ConfigError{
			Field:  "windows",
			Reason: "at least one window is required",
		}
	}
	if err := option.Plans.Validate(); err != nil {
		return configError("plans", err)
	}

	labels := make(map[string]bool)
	names := make(map[string]bool)
	for _, def := range option.Windows {
		field := fmt.Sprintf("windows[%s]", def.Label)
		if err := def.Validate(); err != nil {
			return configError(field, err)
		}
		if labels[def.Label] {
			return &ConfigError{
				Field:  field,
				Reason: "duplicate label",
			}
		}
		labels[def.Label] = true

		for _, name := range metricNames(def, option.Plans.Sorted()) {
			if names[name] {
				return &ConfigError{
					Field:  field,
					Reason: fmt.Sprintf("metric name \"%s\" is generated twice", name),
				}
			}
			names[name] = true
		}
	}
	return nil
}

// Verify asks the configured PlanVerifier whether every plan ID exists.
// Configured plans without a PlanVerifier are a ConfigError.
func (b *Builder) Verify(ctx context.Context) error {
	if len(b.plans) == 0 {
		return nil
	}
	if b.Verifier == nil {
		return &ConfigError{
			Field:  "plans",
			Reason: "plan IDs cannot be verified without a plan verifier",
		}
	}
	unknown, err := b.Verifier.UnknownPlans(ctx, b.Plans.IDs())
	if err != nil {
		return extErrors.Wrap(err, "Cannot verify configured plans")
	}
	if len(unknown) > 0 {
		return &ConfigError{
			Field:  "plans",
			Reason: fmt.Sprintf("unknown plan IDs: %s", strings.Join(unknown, ", ")),
		}
	}
	return nil
}

// Compute aggregates every configured window over the snapshot. It does no I/O
// and returns the same Report for the same customers and now.
func (b *Builder) Compute(customers []customer.Customer, now time.Time) *Report {
	now = now.In(b.Location)

	// status filters do not depend on the window, apply them once
	subs := customer.Subscriptions(customer.Filter(customers, b.Filter))
	subs = subscription.Paid(subscription.Active(subs))

	compute := func(def *window.Definition) Entry {
		return b.entry(*def, subs, now)
	}

	var entries []Entry
	if b.Parallel {
		entries = iter.Map(b.Windows, compute)
	} else {
		entries = lo.Map(b.Windows, func(def window.Definition, _ int) Entry {
			return compute(&def)
		})
	}

	return &Report{
		Now:     now,
		Entries: entries,
	}
}

func (b *Builder) entry(def window.Definition, subs []subscription.Subscription, now time.Time) Entry {
	windows := def.Resolve(now)
	e := Entry{
		Definition: def,
		Windows:    windows,
		Aggregates: make([]subscription.Aggregate, 0, len(windows)),
	}

	subsets := make([][]subscription.Subscription, 0, len(windows))
	for _, w := range windows {
		subset := subs
		if w.Bounded {
			subset = subscription.StartedBetween(subs, w.Start, w.End)
		}
		subsets = append(subsets, subset)
		e.Aggregates = append(e.Aggregates, subscription.Summarize(subset))
	}

	if !def.ByPlan {
		return e
	}
	// plans only ever narrow the window's own subset
	for _, plan := range b.plans {
		pe := PlanEntry{
			Name:       plan.Name,
			ID:         plan.ID,
			Aggregates: make([]subscription.Aggregate, 0, len(subsets)),
		}
		for _, subset := range subsets {
			pe.Aggregates = append(pe.Aggregates, subscription.Summarize(subscription.ByPlan(subset, plan.ID)))
		}
		e.Plans = append(e.Plans, pe)
	}
	return e
}

// Build fetches the snapshot for [epoch, now] once and computes the report.
// A source failure is returned as *FetchError and nothing is computed.
func (b *Builder) Build(ctx context.Context, now time.Time) (*Report, error) {
	now = now.In(b.Location)
	runID := uuid.New().String()
	logger := b.Logger.With(zap.String("RunID", runID))

	customers, err := b.Source.Customers(ctx, window.Epoch, now)
	if err != nil {
		logger.Error("Data source returned error",
			zap.Error(err),
		)
		return nil, &FetchError{Err: err}
	}

	started := time.Now()
	r := b.Compute(customers, now)
	r.RunID = runID

	logger.Info("Report computed",
		zap.Int("Customers", len(customers)),
		zap.Int("Entries", len(r.Entries)),
		zap.Duration("Took", time.Since(started)),
	)
	return r, nil
}

// Run builds the report and emits it to the Sink. Nothing is emitted when the build fails.
func (b *Builder) Run(ctx context.Context, now time.Time) (*Report, error) {
	if b.Sink == nil {
		return nil, fmt.Errorf("nil Sink is invalid")
	}
	r, err := b.Build(ctx, now)
	if err != nil {
		return nil, err
	}
	Emit(r, b.Sink)
	return r, nil
}
