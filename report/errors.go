package report

import "fmt"

// ConfigError describes a malformed report configuration, detected before any aggregation
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Invalid report configuration (%s): %s", e.Field, e.Reason)
}

func configError(field string, err error) *ConfigError {
	return &ConfigError{
		Field:  field,
		Reason: err.Error(),
	}
}

// FetchError wraps a failure of the data source. No metrics are emitted for the run.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Cannot fetch subscription snapshot: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
