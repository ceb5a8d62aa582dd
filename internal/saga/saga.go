// Package saga runs a sequence of steps and undoes the completed ones, in
// reverse order, when a later step fails.
//
// It is the consistency model for writes spanning the graph store and the
// relational store: there is no two-phase commit, only compensation.
package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Step is one unit of a saga.
type Step struct {
	// Name identifies the step in errors and logs.
	Name string

	// Action performs the step.
	Action func(ctx context.Context) error

	// Compensate undoes a completed Action. Nil when the step has nothing
	// to undo.
	Compensate func(ctx context.Context) error
}

// StepError reports the step whose Action failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// CompensationError reports compensations that failed after a step failed.
// Cause is the original failure; Failures holds one error per failed
// compensation. Compensations are never retried.
type CompensationError struct {
	Cause    error
	Failures []error
}

func (e *CompensationError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%v (compensation failed: %s)", e.Cause, strings.Join(msgs, "; "))
}

// Unwrap exposes both the cause and the compensation failures to
// errors.Is and errors.As.
func (e *CompensationError) Unwrap() []error {
	return append([]error{e.Cause}, e.Failures...)
}

// IsCompensationError reports whether err carries compensation failures.
func IsCompensationError(err error) bool {
	var ce *CompensationError
	return errors.As(err, &ce)
}

// Run executes steps in order. When a step fails, the compensations of every
// previously completed step run in reverse order and Run returns a
// *StepError, or a *CompensationError wrapping it when any compensation
// also failed.
//
// CRITICAL: Compensations run under a context detached from ctx's
// cancellation, so a cancelled request still releases its transactions.
func Run(ctx context.Context, steps ...Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return compensate(ctx, steps[:i], &StepError{Step: step.Name, Err: err})
		}
		if err := step.Action(ctx); err != nil {
			return compensate(ctx, steps[:i], &StepError{Step: step.Name, Err: err})
		}
	}
	return nil
}

func compensate(ctx context.Context, done []Step, cause error) error {
	ctx = context.WithoutCancel(ctx)

	var failures []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			failures = append(failures, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	if len(failures) == 0 {
		return cause
	}
	return &CompensationError{Cause: cause, Failures: failures}
}
