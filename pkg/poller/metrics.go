package poller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"logwatch/pkg/engine"
)

var fetchBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics exports poll outcomes. A nil *Metrics records nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	records       prometheus.Gauge
	skipped       prometheus.Gauge
	anomalies     *prometheus.GaugeVec
	successRate   prometheus.Gauge
	avgResponse   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logwatch",
			Subsystem: "poller",
			Name:      "fetches_total",
			Help:      "Count of log fetches by outcome",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logwatch",
			Subsystem: "poller",
			Name:      "fetch_duration_seconds",
			Help:      "Latency distribution of log fetches",
			Buckets:   fetchBuckets,
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logwatch",
			Name:      "records",
			Help:      "Number of records in the latest successful fetch",
		}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logwatch",
			Name:      "records_without_path",
			Help:      "Records left out of endpoint stats in the latest fetch",
		}),
		anomalies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "logwatch",
			Name:      "anomalies",
			Help:      "Anomalies reported by the latest analysis",
		}, []string{"type", "severity"}),
		successRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logwatch",
			Name:      "success_rate_percent",
			Help:      "Share of successful requests in the latest fetch",
		}),
		avgResponse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logwatch",
			Name:      "avg_response_time_ms",
			Help:      "Average response time in the latest fetch",
		}),
	}

	reg.MustRegister(m.fetches, m.fetchDuration, m.records, m.skipped, m.anomalies, m.successRate, m.avgResponse)
	return m
}

func (m *Metrics) observeFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) observeReport(r engine.Report, records int) {
	if m == nil {
		return
	}
	m.records.Set(float64(records))
	m.skipped.Set(float64(r.View.SkippedEndpoints))
	m.successRate.Set(r.Summary.SuccessRate)
	m.avgResponse.Set(float64(r.Summary.AvgResponseTime))

	m.anomalies.Reset()
	for _, f := range r.Anomalies {
		m.anomalies.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
	}
}
