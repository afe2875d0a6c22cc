package domain

import "errors"

// =============================================================================
// Error Taxonomy
// =============================================================================

// Fatal error categories. Each maps to a distinct process exit code in
// cmd/dockport. Non-fatal conditions (group grant failure, proxy reload
// failure under a valid config, probe failures) are logged, never returned
// through these.
var (
	// ErrInvalidInput marks a missing or malformed deployment parameter.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaging marks a clone/pull or descriptor-detection failure.
	ErrStaging = errors.New("source staging failed")

	// ErrConnectivity marks an unreachable host or rejected key.
	ErrConnectivity = errors.New("remote host unreachable")

	// ErrProvisioning marks a package or tool install failure, including
	// the unsupported-platform case and an invalid proxy config.
	ErrProvisioning = errors.New("remote provisioning failed")

	// ErrDeploy marks a container build or run failure.
	ErrDeploy = errors.New("deploy failed")
)
