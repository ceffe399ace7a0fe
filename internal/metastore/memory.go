package metastore

import (
	"context"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/upmusync/internal/util/tree"
)

// MemoryStore keeps documents in process. It records every operation, which
// makes it the backend for dry runs, and can be told to fail specific calls.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]Document
	calls    MemoryCalls
	ops      []Operation
	failures map[failKey]error
}

// MemoryCalls counts method invocations.
type MemoryCalls struct {
	Upsert int
	Delete int
}

// Operation is one recorded call.
type Operation struct {
	Op       Op
	UUID     string
	Document Document // nil for deletes
}

type failKey struct {
	op   Op
	uuid string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]Document),
		failures: make(map[failKey]error),
	}
}

// FailOn makes every later op on uuid return err. A nil err clears the failure.
func (m *MemoryStore) FailOn(op Op, uuid string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, failKey{op, uuid})
		return
	}
	m.failures[failKey{op, uuid}] = err
}

// Upsert stores a copy of doc under uuid.
func (m *MemoryStore) Upsert(ctx context.Context, uuid string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Upsert++
	m.ops = append(m.ops, Operation{Op: OpUpsert, UUID: uuid, Document: Document(tree.Copy(doc))})

	if err := m.failures[failKey{OpUpsert, uuid}]; err != nil {
		return opError(OpUpsert, uuid, err)
	}
	m.docs[uuid] = Document(tree.Copy(doc))
	return nil
}

// Delete removes uuid's document.
func (m *MemoryStore) Delete(ctx context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++
	m.ops = append(m.ops, Operation{Op: OpDelete, UUID: uuid})

	if err := m.failures[failKey{OpDelete, uuid}]; err != nil {
		return opError(OpDelete, uuid, err)
	}
	delete(m.docs, uuid)
	return nil
}

// Close releases resources (no-op).
func (m *MemoryStore) Close() error {
	return nil
}

// Get returns a copy of the document stored under uuid.
func (m *MemoryStore) Get(uuid string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[uuid]
	if !ok {
		return nil, false
	}
	return Document(tree.Copy(doc)), true
}

// Seed stores doc without counting a call, for preparing test state.
func (m *MemoryStore) Seed(uuid string, doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[uuid] = Document(tree.Copy(doc))
}

// Calls returns the number of times each method was called.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Operations returns the recorded calls in order.
func (m *MemoryStore) Operations() []Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Operation, len(m.ops))
	copy(out, m.ops)
	return out
}

// ResetCalls clears call counts and the operation log but keeps documents.
func (m *MemoryStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = MemoryCalls{}
	m.ops = nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// String returns a string representation for debugging.
func (m *MemoryStore) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("MemoryStore{docs: %d, calls: %+v}", len(m.docs), m.calls)
}
