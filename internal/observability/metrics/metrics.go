package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "hvac_"

	// IngestResultSuccess labels a successful ingest request.
	IngestResultSuccess = "success"
	// IngestResultError labels a failed ingest request.
	IngestResultError = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	tickLatency  prometheus.Histogram
	tickFailures prometheus.Counter

	alertEventsTotal *prometheus.CounterVec
	activeAlerts     prometheus.Gauge

	systemTotalBtu prometheus.Gauge
	systemLiveCop  prometheus.Gauge
)

// Init registers the observability metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		tickLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tick_latency_seconds",
				Help:    "Evaluation tick latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		tickFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "tick_failures_total",
				Help: "Total evaluation ticks that logged a storage error",
			},
		)

		alertEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Total alert lifecycle events by type",
			},
			[]string{"type"},
		)
		activeAlerts = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active_alerts",
				Help: "Number of currently ongoing alert conditions",
			},
		)

		systemTotalBtu = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "system_total_btu_per_hour",
				Help: "Current system-wide heat output in BTU/hr",
			},
		)
		systemLiveCop = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "system_live_cop",
				Help: "Current system COP; 0 when not computable",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			tickLatency,
			tickFailures,
			alertEventsTotal,
			activeAlerts,
			systemTotalBtu,
			systemLiveCop,
		)
	})
}

// ObserveIngest records an ingest request outcome and latency.
func ObserveIngest(result string, elapsed time.Duration) {
	if ingestRequests == nil {
		return
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// IncIngestError counts an ingest error by reason.
func IncIngestError(reason string) {
	if ingestErrors == nil {
		return
	}
	ingestErrors.WithLabelValues(reason).Inc()
}

// ObserveTick records one evaluation cycle's latency.
func ObserveTick(elapsed time.Duration) {
	if tickLatency == nil {
		return
	}
	tickLatency.Observe(elapsed.Seconds())
}

// IncTickFailure counts a tick that hit a storage error.
func IncTickFailure() {
	if tickFailures == nil {
		return
	}
	tickFailures.Inc()
}

// IncAlertEvent counts an alert lifecycle event by type.
func IncAlertEvent(eventType string) {
	if alertEventsTotal == nil {
		return
	}
	alertEventsTotal.WithLabelValues(eventType).Inc()
}

// SetActiveAlerts records the number of ongoing conditions.
func SetActiveAlerts(n int) {
	if activeAlerts == nil {
		return
	}
	activeAlerts.Set(float64(n))
}

// SetSystemGauges publishes the headline aggregate values.
func SetSystemGauges(totalBtu float64, liveCop *float64) {
	if systemTotalBtu == nil {
		return
	}
	systemTotalBtu.Set(totalBtu)
	if liveCop != nil {
		systemLiveCop.Set(*liveCop)
	} else {
		systemLiveCop.Set(0)
	}
}
