// Package metrics holds the Prometheus collectors for authentication and
// authorization outcomes.  They register with the default registry and are
// served by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeError    = "error"
	OutcomeAllowed  = "allowed"
	OutcomeDenied   = "denied"
	OutcomeRejected = "rejected"
)

var (
	// LoginTotal counts login attempts by outcome.
	LoginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RefreshTotal counts refresh token rotations by outcome.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Total number of refresh token rotations by outcome",
		},
		[]string{"outcome"},
	)

	// AuthorizeTotal counts authorize gate decisions.
	AuthorizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_authorize_total",
			Help: "Total number of authorization decisions by resource, scope and outcome",
		},
		[]string{"resource", "scope", "outcome"},
	)

	// NotificationsPublished counts notification events handed to the broker.
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_notifications_published_total",
			Help: "Total number of notification events published by type and outcome",
		},
		[]string{"event", "outcome"},
	)
)
