package email

import (
	"context"
	"log/slog"

	"chrometour/internal/events"
	"chrometour/internal/platform/metrics"
	"chrometour/internal/user"
)

// Listener reacts to registration events by sending the verification email.
// It runs after the registration transaction has committed, so any failure
// here is logged and swallowed: the account exists regardless of delivery.
type Listener struct {
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Listener.
type Option func(*Listener)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Listener) {
		l.metrics = m
	}
}

// NewListener builds a listener over the given mail transport.
func NewListener(sender Sender, opts ...Option) *Listener {
	l := &Listener{
		sender: sender,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register subscribes the listener to the bus. Called once at startup.
func (l *Listener) Register(bus *events.Bus) {
	bus.Subscribe(events.UserRegistered, l.handleUserRegistered)
}

func (l *Listener) handleUserRegistered(_ context.Context, event events.Event) {
	registered, ok := event.Payload.(*user.User)
	if !ok {
		l.logger.Error("unexpected payload on registration event", "event", event.Name)
		return
	}

	// One attempt, no retries. Failures must never reach the request path.
	if err := l.sender.SendVerificationEmail(registered.Email, registered.VerificationCode); err != nil {
		l.logger.Error("failed to send verification email",
			"email", registered.Email,
			"error", err,
		)
		if l.metrics != nil {
			l.metrics.VerificationEmailsFailed.Inc()
		}
		return
	}

	l.logger.Info("verification email sent", "email", registered.Email)
	if l.metrics != nil {
		l.metrics.VerificationEmailsSent.Inc()
	}
}
