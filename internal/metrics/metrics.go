package metrics

import (
	"sync"

	"tms/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tms"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	ledgerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Ledger events by type.",
		},
		[]string{"type"},
	)

	ordersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Checkout orders created.",
	})

	ordersCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_completed_total",
		Help:      "Checkout orders completed.",
	})

	equipmentCheckedOut = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "equipment_checked_out",
		Help:      "Equipment items currently checked out.",
	})

	snapshotWriteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_write_errors_total",
			Help:      "Failed snapshot writes by key.",
		},
		[]string{"key"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			ledgerEvents,
			ordersCreated,
			ordersCompleted,
			equipmentCheckedOut,
			snapshotWriteErrors,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncSnapshotWriteError counts a snapshot write that failed.
func IncSnapshotWriteError(key string) {
	snapshotWriteErrors.WithLabelValues(key).Inc()
}

// SetCheckedOut records the current number of checked-out items.
func SetCheckedOut(n int) {
	equipmentCheckedOut.Set(float64(n))
}

// Subscriber is an event handler that turns ledger events into metrics.
func Subscriber(event *events.Event) error {
	ledgerEvents.WithLabelValues(event.Type).Inc()

	switch event.Type {
	case events.EventOrderCreated:
		ordersCreated.Inc()
	case events.EventOrderCompleted:
		ordersCompleted.Inc()
	}
	return nil
}
