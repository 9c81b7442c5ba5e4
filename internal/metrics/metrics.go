// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Toggle results.
const (
	ToggleCleared = "cleared"
	ToggleLocked  = "locked"
)

// Registration results.
const (
	RegistrationCreated   = "created"
	RegistrationDuplicate = "duplicate"
	RegistrationInvalid   = "invalid"
)

var (
	AttendanceToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_attendance_toggles_total",
		Help: "Toggle intents by outcome (present, absent, cleared, locked).",
	}, []string{"result"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_registrations_total",
		Help: "Student registrations by outcome.",
	}, []string{"result"})

	Exports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_exports_total",
		Help: "Calendar exports written.",
	})
)
