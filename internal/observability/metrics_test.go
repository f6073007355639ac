package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordSyncSkipped(t *testing.T) {
	before := testutil.ToFloat64(skippedCounter.WithLabelValues("paramname", "count_mismatch"))
	RecordSyncSkipped("paramname", "count_mismatch")
	require.Equal(t, before+1, testutil.ToFloat64(skippedCounter.WithLabelValues("paramname", "count_mismatch")))
}

func TestRecordSyncedMovesWatermark(t *testing.T) {
	ts := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	RecordSynced(ts)
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastSyncGauge))
}

func TestRecordMutationSkipsEmptyApplied(t *testing.T) {
	before := testutil.ToFloat64(appliedCounter.WithLabelValues("join", "metadata"))
	RecordMutation("join", "metadata", 0)
	RecordMutation("join", "metadata", 3)
	require.Equal(t, before+3, testutil.ToFloat64(appliedCounter.WithLabelValues("join", "metadata")))
}

func TestRecordResolution(t *testing.T) {
	RecordResolution("user", true)
	RecordResolution("user", false)
	require.GreaterOrEqual(t, testutil.ToFloat64(resolutionCounter.WithLabelValues("user", "found")), 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(resolutionCounter.WithLabelValues("user", "empty")), 1.0)
}
