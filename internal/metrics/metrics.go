package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthEvents counts registrations and login attempts by outcome.
	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicvoice_auth_events_total",
			Help: "Authentication events by type",
		},
		[]string{"event"},
	)

	// AuthorizationDenials counts forbidden outcomes by internal reason.
	AuthorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicvoice_authorization_denials_total",
			Help: "Authorization denials by reason",
		},
		[]string{"reason"},
	)

	// EngagementOps counts ledger operations by outcome.
	EngagementOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicvoice_engagement_ops_total",
			Help: "Engagement ledger operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// StoreLatency observes service-level store round trips.
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "civicvoice_store_duration_seconds",
			Help:    "Duration of store-backed operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)
