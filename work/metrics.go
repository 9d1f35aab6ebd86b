package work

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// in Miner
	prometheusMinerHashes        prometheus.Counter
	prometheusMinerRangesScanned prometheus.Counter

	// in Assembler
	prometheusAssemblerBlocksMined    prometheus.Counter
	prometheusAssemblerFailures       prometheus.Counter
	prometheusAssemblerDuration       prometheus.Histogram
	prometheusAssemblerSelectedWeight prometheus.Gauge
	prometheusAssemblerSelectedTxs    prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusMinerHashes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blockminer",
			Subsystem: "miner",
			Name:      "hashes",
			Help:      "Number of header hashes computed while searching for a nonce",
		},
	)

	prometheusMinerRangesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blockminer",
			Subsystem: "miner",
			Name:      "ranges_scanned",
			Help:      "Number of nonce ranges handed to a worker",
		},
	)

	prometheusAssemblerBlocksMined = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blockminer",
			Subsystem: "assembler",
			Name:      "blocks_mined",
			Help:      "Number of blocks assembled and mined",
		},
	)

	prometheusAssemblerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blockminer",
			Subsystem: "assembler",
			Name:      "failures",
			Help:      "Number of assembly runs that ended in an error",
		},
	)

	prometheusAssemblerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "blockminer",
			Subsystem: "assembler",
			Name:      "duration_seconds",
			Help:      "Time taken to assemble and mine a block",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	prometheusAssemblerSelectedWeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blockminer",
			Subsystem: "assembler",
			Name:      "selected_weight",
			Help:      "Total weight of the transactions selected for the last block",
		},
	)

	prometheusAssemblerSelectedTxs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blockminer",
			Subsystem: "assembler",
			Name:      "selected_transactions",
			Help:      "Number of non-coinbase transactions in the last block",
		},
	)
}
