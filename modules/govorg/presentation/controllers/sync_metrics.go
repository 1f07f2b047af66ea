package controllers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	govorgAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "govorg",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of gov-org API requests broken down by endpoint and result.",
	}, []string{"endpoint", "result"})

	govorgAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "govorg",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for gov-org API requests.",
		Buckets: []float64{
			0.001, 0.005, 0.01, 0.05,
			0.1, 0.5, 1, 5, 10, 30, 60,
		},
	}, []string{"endpoint", "result"})

	govorgSyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "govorg",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Completed synchronization runs by outcome.",
	}, []string{"outcome"})

	govorgSyncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "govorg",
		Subsystem: "sync",
		Name:      "records_total",
		Help:      "Records processed by synchronization runs, by disposition.",
	}, []string{"disposition"})
)

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecordingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (c *SyncAPIController) instrumentAPI(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecordingResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		result := "2xx"
		switch {
		case rec.status >= 500:
			result = "5xx"
		case rec.status >= 400:
			result = "4xx"
		}

		govorgAPIRequests.WithLabelValues(endpoint, result).Inc()
		govorgAPILatency.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
	}
}
