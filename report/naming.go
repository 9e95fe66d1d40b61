package report

import (
	"github.com/zllovesuki/subpulse/spec"
	"github.com/zllovesuki/subpulse/subscription"
	"github.com/zllovesuki/subpulse/window"

	"github.com/samber/lo"
)

const (
	treeCountKey = "active subscriptions"
	treeMRRKey   = "active MRR"
)

func join(prefix, label string) string {
	if label == "" {
		return prefix
	}
	return prefix + " " + label
}

// Names returns the count and MRR metric names of a window definition
func Names(def window.Definition) (count, mrr string) {
	if def.Kind == window.KindTotal {
		return join("active subscriptions", def.Label), join("active MRR", def.Label)
	}
	return join("active new subscriptions", def.Label), join("active new MRR", def.Label)
}

// PlanNames returns the count and MRR metric names of a plan breakdown
func PlanNames(def window.Definition, plan string) (count, mrr string) {
	count, mrr = Names(def)
	return "plan " + plan + " " + count, "plan " + plan + " " + mrr
}

func metricNames(def window.Definition, plans []subscription.Plan) []string {
	count, mrr := Names(def)
	names := []string{count, mrr}
	if !def.ByPlan {
		return names
	}
	for _, plan := range plans {
		count, mrr := PlanNames(def, plan.Name)
		names = append(names, count, mrr)
	}
	return names
}

func counts(aggs []subscription.Aggregate) []float64 {
	return lo.Map(aggs, func(a subscription.Aggregate, _ int) float64 {
		return float64(a.Count)
	})
}

func mrrs(aggs []subscription.Aggregate) []float64 {
	return lo.Map(aggs, func(a subscription.Aggregate, _ int) float64 {
		return a.MRR.InexactFloat64()
	})
}

func emit(sink spec.Sink, r *Report, series bool, countName, mrrName string, aggs []subscription.Aggregate) {
	if series {
		sink.SetSeries(countName, counts(aggs), r.Now)
		sink.SetSeries(mrrName, mrrs(aggs), r.Now)
		return
	}
	for _, a := range aggs {
		sink.Set(countName, float64(a.Count), r.Now)
		sink.Set(mrrName, a.MRR.InexactFloat64(), r.Now)
	}
}

// Emit writes two metrics, count then MRR, for every entry and plan breakdown of the report
func Emit(r *Report, sink spec.Sink) {
	for _, e := range r.Entries {
		count, mrr := Names(e.Definition)
		emit(sink, r, e.Definition.Series(), count, mrr, e.Aggregates)
		for _, p := range e.Plans {
			count, mrr := PlanNames(e.Definition, p.Name)
			emit(sink, r, e.Definition.Series(), count, mrr, p.Aggregates)
		}
	}
}

func treeValues(series bool, aggs []subscription.Aggregate) (count, mrr interface{}) {
	if series {
		return counts(aggs), mrrs(aggs)
	}
	if len(aggs) == 0 {
		return 0, 0.0
	}
	return aggs[0].Count, aggs[0].MRR.InexactFloat64()
}

// Tree returns the report as nested results: flat count/MRR keys per window,
// and plan breakdowns under "plan subscriptions <label>" keyed by plan name.
func Tree(r *Report) map[string]interface{} {
	results := make(map[string]interface{})
	for _, e := range r.Entries {
		series := e.Definition.Series()
		countName, mrrName := Names(e.Definition)
		results[countName], results[mrrName] = treeValues(series, e.Aggregates)

		if len(e.Plans) == 0 {
			continue
		}
		byPlan := make(map[string]interface{}, len(e.Plans))
		for _, p := range e.Plans {
			count, mrr := treeValues(series, p.Aggregates)
			byPlan[p.Name] = map[string]interface{}{
				treeCountKey: count,
				treeMRRKey:   mrr,
			}
		}
		results[join("plan subscriptions", e.Definition.Label)] = byPlan
	}
	return results
}
