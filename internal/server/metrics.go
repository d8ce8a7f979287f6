package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcome labels.
const (
	resultStored      = "stored"
	resultFailed      = "failed"
	resultInvalid     = "invalid"
	resultRateLimited = "rate_limited"
)

var (
	// SubmissionsTotal counts submission attempts.
	// Labels: result (stored, failed, invalid, rate_limited).
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bshape",
			Subsystem: "server",
			Name:      "submissions_total",
			Help:      "Total number of assessment submissions by outcome",
		},
		[]string{"result"},
	)

	// RiskLevelsTotal counts stored section results.
	// Labels: section (partner, inlaws, family), level.
	RiskLevelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bshape",
			Subsystem: "server",
			Name:      "risk_levels_total",
			Help:      "Total number of stored section results by risk level",
		},
		[]string{"section", "level"},
	)

	// RequestDuration tracks handler latency.
	// Labels: method, route, status.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bshape",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
