package framework

import (
	"errors"
	"fmt"
	"strings"
)

// AggregatedError collects the errors of components stopping together,
// e.g. the two interrupt sources of a UART or the runners of a loop.
type AggregatedError struct {
	Errors []error
}

// Error implements error. A single error reads as itself.
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap lets errors.Is and errors.As look into every collected error.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// Add collects errs, skipping nil.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	return e.AddExcept(nil, errs...)
}

// AddExcept collects errs, skipping nil and anything matching expected.
// Shutdown paths pass context.Canceled here.
func (e *AggregatedError) AddExcept(expected error, errs ...error) *AggregatedError {
	for _, err := range errs {
		if err == nil || (expected != nil && errors.Is(err, expected)) {
			continue
		}
		e.Errors = append(e.Errors, err)
	}
	return e
}

// Aggregate returns nil when nothing was collected.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
