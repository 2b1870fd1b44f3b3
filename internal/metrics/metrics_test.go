package metrics

import (
	"testing"

	"tms/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncSnapshotWriteError("tms_orders")
	})

	SetCheckedOut(3)
	assert.Equal(t, float64(3), value(t, equipmentCheckedOut))
}

func TestSubscriber(t *testing.T) {
	created := value(t, ordersCreated)
	completed := value(t, ordersCompleted)

	assert.NoError(t, Subscriber(&events.Event{Type: events.EventOrderCreated}))
	assert.NoError(t, Subscriber(&events.Event{Type: events.EventOrderCompleted}))
	assert.NoError(t, Subscriber(&events.Event{Type: events.EventPersonDeleted}))

	assert.Equal(t, created+1, value(t, ordersCreated))
	assert.Equal(t, completed+1, value(t, ordersCompleted))
	assert.Equal(t, float64(1), value(t, ledgerEvents.WithLabelValues(events.EventPersonDeleted)))
}
