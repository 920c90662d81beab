package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records the purchase-to-delivery pipeline counters.
type PipelineMetrics struct {
	checkouts      *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	downloads      *prometheus.CounterVec
	deliveredBytes prometheus.Histogram
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Payment webhook deliveries by disposition.",
	}, []string{"disposition"})
	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "downloads_total",
		Help: "Download redemptions by outcome and shape.",
	}, []string{"outcome"})
	deliveredBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivered_bytes",
		Help:    "Size of delivered payloads in bytes.",
		Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
	})
	reg.MustRegister(checkouts, webhookEvents, downloads, deliveredBytes)
	return &PipelineMetrics{
		checkouts:      checkouts,
		webhookEvents:  webhookEvents,
		downloads:      downloads,
		deliveredBytes: deliveredBytes,
	}
}

// IncCheckout counts a checkout attempt with the given outcome.
func (m *PipelineMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent counts a webhook delivery disposition (processed, duplicate, ignored, malformed).
func (m *PipelineMetrics) IncWebhookEvent(disposition string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(disposition)).Inc()
}

// IncDownload counts a redemption attempt by outcome (file, archive, rejected, missing).
func (m *PipelineMetrics) IncDownload(outcome string) {
	if m == nil || m.downloads == nil {
		return
	}
	m.downloads.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDeliveredBytes records the size of a successful delivery.
func (m *PipelineMetrics) ObserveDeliveredBytes(n int64) {
	if m == nil || m.deliveredBytes == nil || n < 0 {
		return
	}
	m.deliveredBytes.Observe(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
