package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trust_ledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Ledger metrics
	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_operations_total",
			Help: "Ledger operations by kind and outcome",
		},
		[]string{"operation", "status"}, // deposit|send|spend, completed|failed|rejected
	)

	LedgerAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trust_ledger_amount_units",
			Help:    "Amounts moved through the ledger in minor units",
			Buckets: prometheus.ExponentialBuckets(100, 10, 9),
		},
		[]string{"operation"},
	)

	OpenReservationsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trust_ledger_open_reservations",
			Help: "Holds placed on wallet balances awaiting settlement",
		},
	)

	DepositReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trust_ledger_deposit_replays_total",
			Help: "Deposits answered from an existing request for the same external reference",
		},
	)

	// Risk metrics
	RiskAssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_risk_assessments_total",
			Help: "Transaction risk assessments by level",
		},
		[]string{"level"},
	)

	ScamConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trust_ledger_scam_confidence",
			Help:    "Scam confidence of analyzed chat messages",
			Buckets: []float64{10, 25, 50, 75, 90, 100},
		},
	)

	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_alerts_raised_total",
			Help: "Safety alerts raised by type and severity",
		},
		[]string{"type", "severity"},
	)

	ThreatFlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_threat_flags_total",
			Help: "Threat flag attempts by outcome",
		},
		[]string{"result"}, // accepted, denied
	)

	GraphProjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_graph_projections_total",
			Help: "Trust graph writes mirrored to the graph database",
		},
		[]string{"kind", "status"},
	)

	// Aggregate stats, refreshed by the scheduler
	WalletStatsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trust_ledger_wallet_stats",
			Help: "Platform-wide wallet statistics",
		},
		[]string{"counter"},
	)

	// External service metrics
	ExternalAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_external_api_calls_total",
			Help: "Total number of external API calls",
		},
		[]string{"service", "endpoint", "status"},
	)

	ExternalAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trust_ledger_external_api_call_duration_seconds",
			Help:    "External API call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"service", "endpoint"},
	)

	CircuitBreakerStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trust_ledger_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// Security metrics
	AuthenticationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_authentication_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_ledger_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordLedgerOperation counts a ledger operation and, when it moved funds, its amount
func RecordLedgerOperation(operation, status string, amount uint64) {
	LedgerOperationsTotal.WithLabelValues(operation, status).Inc()
	if status == "completed" {
		LedgerAmount.WithLabelValues(operation).Observe(float64(amount))
	}
}

func RecordRiskAssessment(level string) {
	RiskAssessmentsTotal.WithLabelValues(level).Inc()
}

func RecordScamConfidence(confidence uint8) {
	ScamConfidence.Observe(float64(confidence))
}

func RecordAlert(alertType, severity string) {
	AlertsRaisedTotal.WithLabelValues(alertType, severity).Inc()
}

func RecordThreatFlag(result string) {
	ThreatFlagsTotal.WithLabelValues(result).Inc()
}

func RecordGraphProjection(kind, status string) {
	GraphProjectionsTotal.WithLabelValues(kind, status).Inc()
}

func RecordExternalAPICall(service, endpoint, status string, duration float64) {
	ExternalAPICallsTotal.WithLabelValues(service, endpoint, status).Inc()
	ExternalAPICallDuration.WithLabelValues(service, endpoint).Observe(duration)
}

func UpdateCircuitBreakerState(service string, state float64) {
	CircuitBreakerStateGauge.WithLabelValues(service).Set(state)
}

func RecordAuthenticationAttempt(result string) {
	AuthenticationAttemptsTotal.WithLabelValues(result).Inc()
}

func RecordRateLimitHit(endpoint string) {
	RateLimitHitsTotal.WithLabelValues(endpoint).Inc()
}

// PublishWalletStats mirrors the aggregator snapshot into gauges
func PublishWalletStats(counters map[string]uint64) {
	for name, v := range counters {
		WalletStatsGauge.WithLabelValues(name).Set(float64(v))
	}
}
