// Package errors provides the classified error primitives used across upmusync.
//
// A ClassifiedError carries a category (config, snapshot, store, ...), a severity
// and a retry strategy alongside the message and the wrapped cause. Callers build
// them through the fluent ErrorBuilder:
//
//	err := errors.StoreError("upsert metadata").
//		WithContext("uuid", id).
//		WithCause(cause).
//		Build()
//
// The CLI adapter turns a classified error into an exit code and a log record.
package errors
