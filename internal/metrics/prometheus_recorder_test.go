package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncDeviceOutcome(OutcomeUpdated)
	pr.IncDeviceOutcome(OutcomeUpdated)
	pr.IncDeviceOutcome(OutcomeRemoveFailed)
	pr.IncStoreOperation("upsert", true)
	pr.IncStoreOperation("delete", false)
	pr.ObserveRunDuration(150 * time.Millisecond)
	pr.SetPendingRetries(3)
	pr.SetLastRunTimestamp(time.Unix(1700000000, 0))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 5)

	byName := map[string]int{}
	for _, mf := range mfs {
		byName[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 2, byName["upmusync_device_outcomes_total"])
	assert.Equal(t, 2, byName["upmusync_store_operations_total"])
	assert.Equal(t, 1, byName["upmusync_pending_retries"])
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncDeviceOutcome(OutcomeUnchanged)
		pr.IncStoreOperation("upsert", true)
		pr.ObserveRunDuration(time.Second)
		pr.SetPendingRetries(1)
		pr.SetLastRunTimestamp(time.Now())
	})
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncDeviceOutcome(OutcomeRemoved)
	pr.IncDeviceOutcome(OutcomeRemoved)
	pr.IncStoreOperation("delete", false)
	pr.SetPendingRetries(4)
	path := filepath.Join(t.TempDir(), "upmusync.prom")

	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `upmusync_device_outcomes_total{outcome="removed"} 2`)
	assert.Contains(t, text, `upmusync_store_operations_total{op="delete",result="failed"} 1`)
	assert.Contains(t, text, "upmusync_pending_retries 4")
}

func TestPrometheusRecorder_WriteTextfileBadDir(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	err := pr.WriteTextfile(filepath.Join(t.TempDir(), "missing", "upmusync.prom"))
	assert.Error(t, err)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncDeviceOutcome(OutcomeUpdated)
	r.SetPendingRetries(2)
}
