// Package metrics records what a sync run did.
//
// Components receive a Recorder through their options and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	engine := reconcile.NewEngine(store, reconcile.WithRecorder(recorder))
//
// PrometheusRecorder keeps its metrics on its own registry. A one-shot run has
// nothing to serve them from, so WriteTextfile writes the registry for the node
// exporter textfile collector after each run.
package metrics
