package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stablecoin"

var (
	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_batches_total",
			Help:      "Total number of log batches received, by outcome (processed, duplicate, reverted, parse_error)",
		},
		[]string{"outcome"},
	)

	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of parsed events, by type and whether they were new or duplicates",
		},
		[]string{"type", "result"},
	)

	Watermark = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_slot",
			Help:      "Highest slot durably processed",
		},
	)

	DeliveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_delivery_attempts_total",
			Help:      "Total number of webhook delivery attempts, by resulting status",
		},
		[]string{"status"},
	)

	DeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_delivery_duration_seconds",
			Help:      "Duration of webhook delivery requests",
			Buckets:   prometheus.DefBuckets,
		},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of gateway commands, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	UnrecordedOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unrecorded_operations_total",
			Help:      "Total number of executed commands whose operation row could not be written, by kind",
		},
		[]string{"kind"},
	)

	LiveListeners = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_listeners",
			Help:      "Number of connected live event stream listeners",
		},
	)
)

var registerOnce sync.Once

// Register registers all stablecoin metrics to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(BatchesTotal)
		prometheus.MustRegister(EventsTotal)
		prometheus.MustRegister(Watermark)
		prometheus.MustRegister(DeliveryAttemptsTotal)
		prometheus.MustRegister(DeliveryDuration)
		prometheus.MustRegister(CommandsTotal)
		prometheus.MustRegister(UnrecordedOperationsTotal)
		prometheus.MustRegister(LiveListeners)
	})
}
