package reconcile

import (
	"git.home.luguber.info/inful/upmusync/internal/metrics"
	"git.home.luguber.info/inful/upmusync/internal/snapshot"
)

// Action is what happened to a device during a run.
type Action string

const (
	ActionUnchanged    Action = "unchanged"
	ActionUpdated      Action = "updated"
	ActionUpdateFailed Action = "update_failed"
	ActionRemoved      Action = "removed"
	ActionRemoveFailed Action = "remove_failed"
)

// Failed reports whether a is one of the failure actions.
func (a Action) Failed() bool {
	return a == ActionUpdateFailed || a == ActionRemoveFailed
}

func (a Action) outcome() metrics.OutcomeLabel {
	return metrics.OutcomeLabel(a)
}

// Reason explains why a device's documents were rewritten.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNew          Reason = "new"
	ReasonChanged      Reason = "changed"
	ReasonForced       Reason = "forced"
	ReasonAlias        Reason = "alias"
	ReasonMustUpdate   Reason = "must_update"
	ReasonPendingRetry Reason = "pending_retry"
)

// DeviceReport describes the outcome for one device.
type DeviceReport struct {
	Device string
	Action Action
	Reason Reason
	// Streams is the number of stream documents written or deleted.
	Streams int
	// Diff is the change between the prior and desired records when Reason
	// is ReasonChanged.
	Diff string
	Err  error
}

// Result is the outcome of one Reconcile call.
type Result struct {
	// Snapshot is the new previous snapshot.
	Snapshot snapshot.Snapshot
	// Reports holds removals first, then desired devices, each in key order.
	Reports []DeviceReport
}

// Count returns how many reports have action a.
func (r *Result) Count(a Action) int {
	n := 0
	for i := range r.Reports {
		if r.Reports[i].Action == a {
			n++
		}
	}
	return n
}

// Failures returns the reports of devices that failed.
func (r *Result) Failures() []DeviceReport {
	var out []DeviceReport
	for _, rep := range r.Reports {
		if rep.Action.Failed() {
			out = append(out, rep)
		}
	}
	return out
}

// Report returns the report for device, if any.
func (r *Result) Report(device string) (DeviceReport, bool) {
	for _, rep := range r.Reports {
		if rep.Device == device {
			return rep, true
		}
	}
	return DeviceReport{}, false
}
