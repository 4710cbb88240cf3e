package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	patternsTotal  *prometheus.CounterVec
	txTotal        *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	scanning       prometheus.Gauge
	lastScanTime   prometheus.Gauge
	coinsScanned   prometheus.Gauge
	signalsCreated prometheus.Counter
	winRate        prometheus.Gauge
}

// New creates a Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		patternsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_patterns_detected_total",
				Help: "Detected patterns by family and bias",
			},
			[]string{"family", "bias"},
		),
		txTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpulse_whale_transactions_total",
				Help: "Ingested whale transactions by classified type",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chainpulse_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		scanning: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainpulse_scan_in_flight",
			Help: "1 while a scan cycle is running",
		}),
		lastScanTime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainpulse_last_scan_timestamp_seconds",
			Help: "Unix time of the last completed scan cycle",
		}),
		coinsScanned: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainpulse_coins_scanned",
			Help: "Symbols evaluated in the last scan cycle",
		}),
		signalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainpulse_signals_generated_total",
			Help: "Signals persisted across all scan cycles",
		}),
		winRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainpulse_win_rate_percent",
			Help: "Win rate over resolved signals",
		}),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPattern records a surviving detected pattern.
func (r *Recorder) RecordPattern(family, bias string) {
	r.patternsTotal.WithLabelValues(family, bias).Inc()
}

// RecordTransaction records a classified whale transaction.
func (r *Recorder) RecordTransaction(txType string) {
	r.txTotal.WithLabelValues(txType).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordScanCycle records the outcome of one completed scan cycle.
func (r *Recorder) RecordScanCycle(coinsScanned, signalsGenerated int) {
	r.coinsScanned.Set(float64(coinsScanned))
	r.signalsCreated.Add(float64(signalsGenerated))
	r.lastScanTime.Set(float64(time.Now().Unix()))
}

// SetScanning flags whether a scan cycle is in flight.
func (r *Recorder) SetScanning(on bool) {
	if on {
		r.scanning.Set(1)
		return
	}
	r.scanning.Set(0)
}

// SetWinRate publishes the current win rate.
func (r *Recorder) SetWinRate(pct float64) {
	r.winRate.Set(pct)
}
