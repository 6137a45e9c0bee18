// Package metrics defines Prometheus metrics for the member site.
//
// Metric naming follows Prometheus conventions:
//   - memberzone_ prefix for all custom metrics
//   - _total suffix for counters
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SignupsTotal counts signup attempts by outcome.
	SignupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberzone_signups_total",
			Help: "Total number of signup attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// LoginsTotal counts login attempts by outcome.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberzone_logins_total",
			Help: "Total number of login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// GateRefusalsTotal counts requests refused by an access guard.
	GateRefusalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberzone_gate_refusals_total",
			Help: "Total number of requests refused by the session or role guard.",
		},
		[]string{"guard"},
	)

	// RoleChangesTotal counts role changes by new role and whether the
	// caller's own session was synced.
	RoleChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberzone_role_changes_total",
			Help: "Total number of role changes by new role and self-sync.",
		},
		[]string{"role", "self"},
	)
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Guard label values.
const (
	GuardSession = "session"
	GuardRole    = "role"
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		SignupsTotal,
		LoginsTotal,
		GateRefusalsTotal,
		RoleChangesTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
