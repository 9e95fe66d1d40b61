package customer

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	extErrors "github.com/pkg/errors"
)

// Compile turns a boolean expression over a Customer into a Predicate.
// Fields are referenced by name, e.g.:
//
//	Metadata["channel"] == "self-service" && not (Email endsWith "@example.com")
//
// An empty expression yields a nil Predicate. A customer for which the expression fails at runtime is not selected.
func Compile(expression string) (Predicate, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(Customer{}), expr.AsBool())
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot compile customer filter")
	}
	return func(c Customer) bool {
		return run(program, c)
	}, nil
}

func run(program *vm.Program, c Customer) bool {
	out, err := expr.Run(program, c)
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}
