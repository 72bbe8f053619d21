package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the feedback server.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	FeedbackTotal    *prometheus.CounterVec
	FeedbackDuration prometheus.Histogram
	FeedbackScore    prometheus.Histogram
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "intervoice"
	}

	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	feedbackDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feedback_duration_seconds",
			Help:      "Time to assess a transcript and save the feedback",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	feedbackScore := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feedback_total_score",
			Help:      "Distribution of total interview scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
	)

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		feedbackTotal,
		feedbackDuration,
		feedbackScore,
	)

	return &Metrics{
		registry:         registry,
		RequestsTotal:    requestsTotal,
		RequestDuration:  requestDuration,
		FeedbackTotal:    feedbackTotal,
		FeedbackDuration: feedbackDuration,
		FeedbackScore:    feedbackScore,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordFeedback records one feedback attempt. score is ignored unless outcome is "success".
func (m *Metrics) RecordFeedback(outcome string, score int, duration time.Duration) {
	m.FeedbackTotal.WithLabelValues(outcome).Inc()
	m.FeedbackDuration.Observe(duration.Seconds())
	if outcome == "success" {
		m.FeedbackScore.Observe(float64(score))
	}
}
