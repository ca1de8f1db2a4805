package telemetry

import "errors"

// Error codes carried by failure readings. The orchestrator uses the class
// of the code to decide between retrying and disabling a source.
const (
	ErrCodeTimeout      = "timeout"
	ErrCodeNetwork      = "network"
	ErrCodeServerError  = "server_error"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeBadResponse  = "bad_response"
)

// IsTransient reports whether a failure with this code is worth retrying.
func IsTransient(code string) bool {
	switch code {
	case ErrCodeTimeout, ErrCodeNetwork, ErrCodeServerError, ErrCodeRateLimited:
		return true
	}
	return false
}

// IsPermanent reports whether the code disables the source for the rest of
// the run.
func IsPermanent(code string) bool {
	return code == ErrCodeUnauthorized
}

// Whole-batch and store-level failures. Per-record and per-task problems are
// absorbed into counts and never surface through these.
var (
	// ErrAllSourcesFailed is returned when every task across every adapter
	// failed and the batch holds no successful reading.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrBatchEmpty is returned when zero records survive the required-field
	// filter during cleaning.
	ErrBatchEmpty = errors.New("no usable records in batch")

	// ErrStoreUnavailable is returned when the connectivity probe fails
	// before any destructive load step.
	ErrStoreUnavailable = errors.New("store connectivity probe failed")
)
