package metastore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
)

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	require.NoError(t, store.Upsert(ctx, "u1", Document{"uuid": "u1", "Location": "A"}))
	require.NoError(t, store.Upsert(ctx, "u1", Document{"uuid": "u1", "Name": "n"}))

	doc, ok := store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, Document{"uuid": "u1", "Name": "n"}, doc)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, MemoryCalls{Upsert: 2}, store.Calls())
}

func TestMemoryStore_StoresCopies(t *testing.T) {
	store := NewMemoryStore()
	doc := Document{"uuid": "u1", "nested": map[string]any{"k": "v"}}
	require.NoError(t, store.Upsert(t.Context(), "u1", doc))

	doc["nested"].(map[string]any)["k"] = "changed"

	got, _ := store.Get("u1")
	assert.Equal(t, "v", got["nested"].(map[string]any)["k"])
}

func TestMemoryStore_DeleteAbsentIsNoop(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Delete(t.Context(), "missing"))
	assert.Equal(t, MemoryCalls{Delete: 1}, store.Calls())
}

func TestMemoryStore_FailOn(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("u1", Document{"uuid": "u1"})
	boom := errors.New("connection reset")
	store.FailOn(OpDelete, "u1", boom)

	err := store.Delete(t.Context(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeleteFailed)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryStore))
	_, ok := store.Get("u1")
	assert.True(t, ok, "failed delete must leave the document")

	store.FailOn(OpDelete, "u1", nil)
	require.NoError(t, store.Delete(t.Context(), "u1"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_OperationsLog(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()
	require.NoError(t, store.Upsert(ctx, "a", Document{"uuid": "a"}))
	require.NoError(t, store.Delete(ctx, "b"))

	ops := store.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, Operation{Op: OpUpsert, UUID: "a", Document: Document{"uuid": "a"}}, ops[0])
	assert.Equal(t, Operation{Op: OpDelete, UUID: "b"}, ops[1])

	store.ResetCalls()
	assert.Empty(t, store.Operations())
	assert.Equal(t, MemoryCalls{}, store.Calls())
	assert.Equal(t, 1, store.Len())
}
