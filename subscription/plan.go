package subscription

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"

	extErrors "github.com/pkg/errors"
	"github.com/samber/lo"
)

// Plan names a provider plan for segmentation
type Plan struct {
	Name string `json:"name"` // Shown in the metric names (e.g. "Starter")
	ID   string `json:"id"`   // Corresponds to Stripe's Plan ID
}

// Plans maps plan names to provider plan IDs
type Plans map[string]string

// Sorted returns the plans ordered by name, so reports come out in a stable order
func (p Plans) Sorted() []Plan {
	plans := lo.MapToSlice(p, func(name, id string) Plan {
		return Plan{Name: name, ID: id}
	})
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Name < plans[j].Name
	})
	return plans
}

// IDs returns the plan IDs in name order
func (p Plans) IDs() []string {
	return lo.Map(p.Sorted(), func(plan Plan, _ int) string {
		return plan.ID
	})
}

// Validate rejects empty names and IDs, and IDs shared by two names.
// A shared ID would count the same subscriptions twice across plans.
func (p Plans) Validate() error {
	seen := make(map[string]string, len(p))
	for _, plan := range p.Sorted() {
		if plan.Name == "" {
			return fmt.Errorf("empty plan name is invalid")
		}
		if plan.ID == "" {
			return fmt.Errorf("plan \"%s\" has an empty ID", plan.Name)
		}
		if other, ok := seen[plan.ID]; ok {
			return fmt.Errorf("plans \"%s\" and \"%s\" share ID %s", other, plan.Name, plan.ID)
		}
		seen[plan.ID] = plan.Name
	}
	return nil
}

// LoadPlansFromFile reads a JSON object of plan name to plan ID
func LoadPlansFromFile(filename string) (Plans, error) {
	jsonBytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open plans JSON file")
	}
	plans := make(Plans)
	if err := json.Unmarshal(jsonBytes, &plans); err != nil {
		return nil, extErrors.Wrap(err, "Invalid plan JSON file")
	}
	return plans, nil
}
