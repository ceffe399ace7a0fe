// Package metastore persists per-stream metadata documents keyed by stream uuid.
package metastore

import (
	"context"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
)

// Document is one stream's metadata: the device's shared fields merged with
// the stream's own fields, including its "uuid".
type Document map[string]any

// Store is a document store addressed by the uuid field.
type Store interface {
	// Upsert inserts doc, or replaces every field of the document already
	// stored under uuid.
	Upsert(ctx context.Context, uuid string, doc Document) error

	// Delete removes the documents stored under uuid. Deleting a uuid that
	// has no document is not an error.
	Delete(ctx context.Context, uuid string) error

	// Close releases the connection.
	Close() error
}

// Op names a store operation in errors, logs and metrics.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

var (
	// ErrUpsertFailed matches any failed Upsert.
	ErrUpsertFailed = ferrors.StoreError("upsert metadata").Build()
	// ErrDeleteFailed matches any failed Delete.
	ErrDeleteFailed = ferrors.StoreError("delete metadata").Build()
	// ErrNotFound is returned by inspection helpers for an unknown uuid.
	ErrNotFound = ferrors.NewError(ferrors.CategoryStore, "metadata not found").Build()
)

func opError(op Op, uuid string, cause error) error {
	sentinel := ErrUpsertFailed
	if op == OpDelete {
		sentinel = ErrDeleteFailed
	}
	return ferrors.StoreError(sentinel.Message()).
		WithCause(cause).
		WithContext("op", string(op)).
		WithContext("uuid", uuid).
		Build()
}
