package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	events    *prometheus.CounterVec
	transfers *prometheus.CounterVec
	disputes  prometheus.Gauge
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics
)

// Ledger returns the lazily-initialised metrics registry tracking escrow
// ledger activity.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pact",
				Subsystem: "ledger",
				Name:      "events_total",
				Help:      "Count of emitted ledger events segmented by event type.",
			}, []string{"type"}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pact",
				Subsystem: "ledger",
				Name:      "transfers_total",
				Help:      "Count of vault transfers segmented by asset symbol.",
			}, []string{"asset"}),
			disputes: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "pact",
				Subsystem: "ledger",
				Name:      "open_disputes",
				Help:      "Number of disputes currently awaiting resolution.",
			}),
		}
		prometheus.MustRegister(ledgerRegistry.events, ledgerRegistry.transfers, ledgerRegistry.disputes)
	})
	return ledgerRegistry
}

// RecordEvent increments the event counter for the supplied type.
func (m *ledgerMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "unknown"
	}
	m.events.WithLabelValues(eventType).Inc()
}

// RecordTransfer increments the transfer counter for the supplied asset
// symbol.
func (m *ledgerMetrics) RecordTransfer(asset string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		normalized = "UNKNOWN"
	}
	m.transfers.WithLabelValues(normalized).Inc()
}

// DisputeOpened bumps the open-dispute gauge.
func (m *ledgerMetrics) DisputeOpened() {
	if m == nil {
		return
	}
	m.disputes.Inc()
}

// DisputeClosed decrements the open-dispute gauge.
func (m *ledgerMetrics) DisputeClosed() {
	if m == nil {
		return
	}
	m.disputes.Dec()
}
