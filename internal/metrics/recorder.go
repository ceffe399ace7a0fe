package metrics

import "time"

// OutcomeLabel enumerates per-device results.
type OutcomeLabel string

const (
	OutcomeUnchanged    OutcomeLabel = "unchanged"
	OutcomeUpdated      OutcomeLabel = "updated"
	OutcomeUpdateFailed OutcomeLabel = "update_failed"
	OutcomeRemoved      OutcomeLabel = "removed"
	OutcomeRemoveFailed OutcomeLabel = "remove_failed"
)

// Recorder defines the hooks called during a run. Implementations must be
// safe for concurrent use.
type Recorder interface {
	IncDeviceOutcome(outcome OutcomeLabel)
	IncStoreOperation(op string, success bool)
	ObserveRunDuration(d time.Duration)
	SetPendingRetries(n int)
	SetLastRunTimestamp(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncDeviceOutcome(OutcomeLabel) {}
func (NoopRecorder) IncStoreOperation(string, bool) {}
func (NoopRecorder) ObserveRunDuration(time.Duration) {}
func (NoopRecorder) SetPendingRetries(int) {}
func (NoopRecorder) SetLastRunTimestamp(time.Time) {}
