package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	retrievalRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "askpapers_retrieval_requests_total",
		Help: "Retrieval requests by outcome.",
	}, []string{"status"})

	retrievalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "askpapers_retrieval_duration_seconds",
		Help:    "End-to-end retrieval latency.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(retrievalRequests, retrievalDuration)
}
