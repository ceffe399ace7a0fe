package reconcile

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/upmusync/internal/logfields"
	"git.home.luguber.info/inful/upmusync/internal/metastore"
	"git.home.luguber.info/inful/upmusync/internal/metrics"
	"git.home.luguber.info/inful/upmusync/internal/snapshot"
	"git.home.luguber.info/inful/upmusync/internal/util/sets"
	"git.home.luguber.info/inful/upmusync/internal/util/tree"
)

// Options are the per-run inputs besides the two snapshots.
type Options struct {
	// Force holds device keys and aliases whose documents are rewritten
	// even when their record is unchanged.
	Force sets.Set[string]
	// UsePrevious, when false, treats the previous snapshot as empty: nothing
	// is removed and every desired device is rewritten.
	UsePrevious bool
}

// Engine applies the difference between two snapshots to a metadata store.
type Engine struct {
	store    metastore.Store
	logger   *slog.Logger
	recorder metrics.Recorder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) EngineOption {
	return func(e *Engine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// NewEngine creates an engine writing to store.
func NewEngine(store metastore.Store, options ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Reconcile runs the removal pass and then the reconciliation pass. Neither
// desired nor previous is modified. Store and data errors are confined to the
// device they occur on and show up in the result's reports.
func (e *Engine) Reconcile(ctx context.Context, desired, previous snapshot.Snapshot, opts Options) *Result {
	if !opts.UsePrevious || previous == nil {
		previous = snapshot.Snapshot{}
	}
	if opts.Force == nil {
		opts.Force = sets.New[string]()
	}

	res := &Result{Snapshot: make(snapshot.Snapshot, len(desired))}

	removed := sets.KeysOf(previous).Difference(sets.KeysOf(desired))
	for _, key := range sets.Sorted(removed) {
		rep := e.remove(ctx, key, previous[key], res.Snapshot)
		e.record(rep)
		res.Reports = append(res.Reports, rep)
	}

	for _, key := range desired.Keys() {
		rep := e.reconcileDevice(ctx, key, desired[key], previous[key], opts.Force, res.Snapshot)
		e.record(rep)
		res.Reports = append(res.Reports, rep)
	}

	return res
}

func (e *Engine) remove(ctx context.Context, key string, prior *snapshot.Device, out snapshot.Snapshot) DeviceReport {
	rep := DeviceReport{Device: key, Action: ActionRemoved}
	log := e.logger.With(logfields.Device(key))
	log.Info("Removing metadata for device")

	err := e.deleteStreams(ctx, prior, &rep)
	if err != nil {
		log.Warn("Could not remove metadata for device; will retry next run", logfields.Error(err))
		retry := prior.Clone()
		retry.Status = snapshot.StatusPendingRetry
		out[key] = retry
		rep.Action = ActionRemoveFailed
		rep.Err = err
	}
	return rep
}

func (e *Engine) deleteStreams(ctx context.Context, prior *snapshot.Device, rep *DeviceReport) error {
	ids, err := StreamUUIDs(prior)
	if err != nil {
		return err
	}
	for _, id := range ids {
		err := e.store.Delete(ctx, id)
		e.recorder.IncStoreOperation(string(metastore.OpDelete), err == nil)
		if err != nil {
			return err
		}
		rep.Streams++
	}
	return nil
}

func (e *Engine) reconcileDevice(
	ctx context.Context,
	key string,
	current, prior *snapshot.Device,
	force sets.Set[string],
	out snapshot.Snapshot,
) DeviceReport {
	rep := DeviceReport{Device: key, Action: ActionUnchanged}
	log := e.logger.With(logfields.Device(key))
	log.Info("Processing device")

	rep.Reason = updateReason(key, current, prior, force)
	if rep.Reason == ReasonNone {
		out[key] = snapshot.NewDevice(tree.Copy(current.Payload))
		return rep
	}
	if rep.Reason == ReasonChanged {
		rep.Diff = tree.Diff(prior.Payload, current.Payload)
		log.Debug("Device record changed", slog.String("diff", rep.Diff))
	}

	log.Info("Updating metadata for device", logfields.Reason(string(rep.Reason)))
	if err := e.writeStreams(ctx, current, &rep); err != nil {
		log.Warn("Could not update metadata for device; will retry next run", logfields.Error(err))
		out[key] = failedUpdate(prior)
		rep.Action = ActionUpdateFailed
		rep.Err = err
		return rep
	}

	out[key] = snapshot.NewDevice(tree.Copy(current.Payload))
	rep.Action = ActionUpdated
	return rep
}

// writeStreams builds every document before the first write, so a malformed
// stream fails the device without touching the store.
func (e *Engine) writeStreams(ctx context.Context, current *snapshot.Device, rep *DeviceReport) error {
	docs, err := BuildDocuments(current)
	if err != nil {
		return err
	}
	for _, d := range docs {
		err := e.store.Upsert(ctx, d.UUID, d.Document)
		e.recorder.IncStoreOperation(string(metastore.OpUpsert), err == nil)
		if err != nil {
			return err
		}
		e.logger.Debug("Upserted stream metadata",
			logfields.Stream(d.Stream), logfields.UUID(d.UUID))
		rep.Streams++
	}
	return nil
}

// updateReason returns ReasonNone when current needs no store writes.
func updateReason(key string, current, prior *snapshot.Device, force sets.Set[string]) Reason {
	switch {
	case prior == nil:
		if len(current.Payload) == 0 && !force.Has(key) {
			return ReasonNone
		}
		return ReasonNew
	case prior.Status == snapshot.StatusPendingRetry:
		return ReasonPendingRetry
	case prior.MustUpdate:
		return ReasonMustUpdate
	case !tree.Equal(prior.Payload, current.Payload):
		return ReasonChanged
	case force.Has(key):
		return ReasonForced
	}
	if alias, ok := current.Alias(); ok && force.Has(alias) {
		return ReasonAlias
	}
	return ReasonNone
}

// failedUpdate keeps the prior record, or an empty one for a device that
// was never written, and flags it for the next run.
func failedUpdate(prior *snapshot.Device) *snapshot.Device {
	d := snapshot.NewDevice(nil)
	if prior != nil {
		d = snapshot.NewDevice(tree.Copy(prior.Payload))
	}
	d.MustUpdate = true
	return d
}

func (e *Engine) record(rep DeviceReport) {
	e.recorder.IncDeviceOutcome(rep.Action.outcome())
}
