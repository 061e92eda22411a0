package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	OtpSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_sessions_total",
			Help: "OTP session transitions",
		},
		[]string{"event"}, // initiated|shared|reported|consumed|expired
	)

	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_settlements_total",
			Help: "Fraud settlement attempts",
		},
		[]string{"status"}, // success|failed
	)

	CardsBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cards_blocked_total",
			Help: "Cards blocked by a defensive report",
		},
	)

	UnlockAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unlock_attempts_total",
			Help: "Unlock verification attempts",
		},
		[]string{"outcome"}, // verified|mismatch|locked_out|expired
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(OtpSessionsTotal)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(CardsBlockedTotal)
	prometheus.MustRegister(UnlockAttemptsTotal)
}
