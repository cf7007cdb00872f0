package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent_ExportsToRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewWithRegisterer("applicant-gate-test", reg)
	defer obs.Shutdown()

	obs.RecordEvent(context.Background(), "decision", "ok", 12*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "events_processed")
	assert.Contains(t, joined, "events_duration")
}

func TestNilObservability_IsSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordEvent(context.Background(), "text", "ok", time.Millisecond)
		obs.Shutdown()
	})
	assert.NotPanics(t, func() {
		(&Observability{}).RecordEvent(context.Background(), "text", "ok", time.Millisecond)
	})
}
