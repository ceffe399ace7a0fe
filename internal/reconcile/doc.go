// Package reconcile converges the metadata store with the desired fleet
// configuration.
//
// A run has two passes. The removal pass deletes the stream documents of every
// device that disappeared from the desired snapshot; a device whose documents
// could not all be deleted is carried into the output as pending retry. The
// reconciliation pass rewrites the documents of every device whose record
// changed, was force-selected, or was left unfinished by an earlier run. When a
// write fails the output keeps the device's prior record and marks it
// MustUpdate, so the next run revisits it unconditionally.
//
// The output snapshot is what the caller persists as the next previous
// snapshot. Per-device failures are reported, never returned.
package reconcile
