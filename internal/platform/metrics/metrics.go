package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated             prometheus.Counter
	UsersVerified            prometheus.Counter
	VerificationEmailsSent   prometheus.Counter
	VerificationEmailsFailed prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics on a specific registerer. Tests pass their own
// registry to avoid duplicate-registration panics across suites.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "chrome_tour_users_created_total",
			Help: "Total number of users created in the system",
		}),
		UsersVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "chrome_tour_users_verified_total",
			Help: "Total number of users that completed email verification",
		}),
		VerificationEmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "chrome_tour_verification_emails_sent_total",
			Help: "Total number of verification emails sent",
		}),
		VerificationEmailsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "chrome_tour_verification_emails_failed_total",
			Help: "Total number of verification emails that failed to send",
		}),
	}
}
