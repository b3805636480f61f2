// Package metrics owns the Prometheus registry for the portal.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portal",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
	}, []string{"method", "route"})

	otpDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "auth",
		Name:      "otp_deliveries_total",
		Help:      "OTP emails attempted, by result.",
	}, []string{"result"})

	logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by role and result.",
	}, []string{"role", "result"})

	finesCharged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "library",
		Name:      "fines_charged_total",
		Help:      "Sum of late-return fines added to library balances.",
	})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		otpDeliveries,
		logins,
		finesCharged,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted bumps the in-flight gauge and returns the matching
// completion callback.
func RequestStarted() func(method, route string, status int, d time.Duration) {
	httpInFlight.Inc()
	return func(method, route string, status int, d time.Duration) {
		httpInFlight.Dec()
		if route == "" {
			route = "unmatched"
		}
		method = strings.ToUpper(method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// RecordOTPDelivery counts a delivery attempt.
func RecordOTPDelivery(ok bool) {
	otpDeliveries.WithLabelValues(result(ok)).Inc()
}

// RecordLogin counts a login attempt; role may be empty when unresolved.
func RecordLogin(role string, ok bool) {
	if role == "" {
		role = "unknown"
	}
	logins.WithLabelValues(role, result(ok)).Inc()
}

// RecordFine adds a charged fine to the running total.
func RecordFine(amount int64) {
	if amount > 0 {
		finesCharged.Add(float64(amount))
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
