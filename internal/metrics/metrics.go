package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletbot_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletbot_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	InboundUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletbot_inbound_updates_total",
		Help: "Inbound chat updates, labeled by command (text for free text)",
	}, []string{"command"})

	FlowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletbot_flow_outcomes_total",
		Help: "Conversational flow step outcomes",
	}, []string{"flow", "outcome"})

	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletbot_provider_requests_total",
		Help: "Payment provider calls, labeled by operation and result",
	}, []string{"operation", "result"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletbot_provider_request_duration_seconds",
		Help:    "Payment provider call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletbot_ledger_mutations_total",
		Help: "Ledger transactions appended, labeled by type",
	}, []string{"type"})

	LedgerPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walletbot_ledger_persist_failures_total",
		Help: "Failed writes of the ledger snapshot file",
	})

	BroadcastDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletbot_broadcast_deliveries_total",
		Help: "Broadcast messages delivered, labeled by result",
	}, []string{"result"})

	PendingFlows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "walletbot_pending_flows",
		Help: "Conversational flows currently awaiting user input",
	})
)
