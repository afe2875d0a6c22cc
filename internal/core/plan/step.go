package plan

import (
	"context"
	"fmt"
	"log/slog"
)

// =============================================================================
// Step Contract
// =============================================================================

// Status is the tri-state outcome of one provisioning step.
type Status int

const (
	// StatusSatisfied means the precondition check found nothing to do.
	StatusSatisfied Status = iota
	// StatusApplied means the step performed its change successfully.
	StatusApplied
	// StatusFailed means the step's apply action failed.
	StatusFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusSatisfied:
		return "already-satisfied"
	case StatusApplied:
		return "applied"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result holds one command execution's observable output.
type Result struct {
	Stdout   string
	ExitCode int
}

// OK reports whether the remote process exited zero.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Runner executes commands on the remote host. Implemented by the SSH
// transport; tests substitute an in-process fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Step is one idempotent provisioning operation. Check probes whether the
// desired state already holds; Apply establishes it. Re-running a step
// against any prior state must converge, never error on "already done".
type Step interface {
	Name() string
	Check(ctx context.Context, r Runner) (bool, error)
	Apply(ctx context.Context, r Runner) error
}

// RunStep drives one step through the check-then-apply contract and returns
// its tri-state status.
func RunStep(ctx context.Context, r Runner, s Step, logger *slog.Logger) (Status, error) {
	ok, err := s.Check(ctx, r)
	if err != nil {
		return StatusFailed, fmt.Errorf("step %s: check: %w", s.Name(), err)
	}
	if ok {
		logger.Debug("step already satisfied", "step", s.Name())
		return StatusSatisfied, nil
	}

	logger.Info("applying step", "step", s.Name())
	if err := s.Apply(ctx, r); err != nil {
		return StatusFailed, fmt.Errorf("step %s: apply: %w", s.Name(), err)
	}
	return StatusApplied, nil
}
