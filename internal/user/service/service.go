// Package service holds the business rules for registration and verification.
// Transport (GraphQL) and storage concerns live in other layers.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"chrometour/internal/events"
	"chrometour/internal/platform/config"
	"chrometour/internal/platform/metrics"
	"chrometour/internal/user"
	"chrometour/internal/user/device"
	"chrometour/internal/user/store"
	dErrors "chrometour/pkg/domain-errors"
	"chrometour/pkg/platform/sentinel"
)

// emailPattern is a deliberately loose shape check; the mailbox either exists
// or the verification mail bounces.
var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// verificationCodeBytes yields a 6-character hex code.
const verificationCodeBytes = 3

// conflictMessages are the client-facing reasons per conflicting field, used
// both by the pre-check and by write-time constraint mapping.
var conflictMessages = map[string]string{
	"username":     "Username is already taken.",
	"email":        "Email is already registered.",
	"phone_number": "Phone number is already in use.",
}

// RegisterInput carries everything a registration request supplies. All
// metadata fields are optional.
type RegisterInput struct {
	Username    string
	Email       string
	PhoneNumber string
	Password    string

	RegistrationIP       string
	UserAgent            string
	RegisteredVia        string
	RegistrationReferrer string
}

// Service implements the registration and verification workflows.
type Service struct {
	store   store.Store
	bus     *events.Bus
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNow overrides the clock, used by tests to cross the code expiry.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs the user service. The bus is a required collaborator: the
// post-commit registration event is part of the workflow's contract.
func New(st store.Store, bus *events.Bus, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}

	svc := &Service{
		store:  st,
		bus:    bus,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register validates the input, persists a new unverified user, and announces
// the registration after the write commits. The returned view never contains
// the password hash or the verification code.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*user.Sanitized, error) {
	fieldErrs, err := s.validateRegistration(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := fieldErrs.Err("Registration failed:"); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Unexpected error while processing password.")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Unexpected error while generating verification code.")
	}

	now := s.now()
	expiresAt := now.Add(config.VerificationCodeTTL)
	newUser := &user.User{
		Username:     input.Username,
		Email:        input.Email,
		PhoneNumber:  input.PhoneNumber,
		PasswordHash: string(hash),

		IsActive:      false,
		EmailVerified: false,

		VerificationCode:          code,
		VerificationCodeSentAt:    &now,
		VerificationCodeExpiresAt: &expiresAt,

		RegistrationIP:        input.RegistrationIP,
		RegistrationUserAgent: input.UserAgent,
		RegisteredVia:         input.RegisteredVia,
		RegistrationReferrer:  input.RegistrationReferrer,
	}

	if err := s.store.Create(ctx, newUser); err != nil {
		return nil, translateCreateError(err)
	}

	// The write is committed; everything from here on is observation and
	// side effects that must not fail the request.
	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
	}
	s.logger.Info("user registered",
		"user_id", newUser.ID,
		"username", newUser.Username,
		"device", device.ParseUserAgent(input.UserAgent),
		"via", input.RegisteredVia,
	)
	s.bus.Publish(events.UserRegistered, newUser)

	return newUser.Sanitize(), nil
}

// validateRegistration runs the format check and the uniqueness pre-checks.
// The pre-checks are a fast path for good error messages; the database
// constraint remains the source of truth under races.
func (s *Service) validateRegistration(ctx context.Context, input RegisterInput) (*dErrors.FieldErrors, error) {
	var fieldErrs dErrors.FieldErrors

	if !emailPattern.MatchString(input.Email) {
		fieldErrs.Set("email", "Invalid email format.")
	}

	if taken, err := exists(s.store.FindByUsername(ctx, input.Username)); err != nil {
		return nil, err
	} else if taken {
		fieldErrs.Set("username", conflictMessages["username"])
	}

	if taken, err := exists(s.store.FindByEmail(ctx, input.Email)); err != nil {
		return nil, err
	} else if taken {
		fieldErrs.Set("email", conflictMessages["email"])
	}

	if input.PhoneNumber != "" {
		if taken, err := exists(s.store.FindByPhone(ctx, input.PhoneNumber)); err != nil {
			return nil, err
		} else if taken {
			fieldErrs.Set("phone_number", conflictMessages["phone_number"])
		}
	}

	return &fieldErrs, nil
}

// exists collapses a lookup result into "is the value taken".
func exists(_ *user.User, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "Unexpected database error while saving user.")
}

// Verify checks a submitted code against the stored one for the user matching
// the email-or-phone identifier, then activates and marks the user verified.
func (s *Service) Verify(ctx context.Context, emailOrPhone, code string) (*user.Sanitized, error) {
	found, err := s.store.FindByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Unexpected database error while saving user.")
	}

	if found.VerificationCode != code {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "Invalid verification code.")
	}

	if found.VerificationCodeExpiresAt == nil || found.VerificationCodeExpiresAt.Before(s.now()) {
		return nil, dErrors.New(dErrors.CodeExpired, "Verification code has expired.")
	}

	now := s.now()
	found.EmailVerified = true
	found.EmailVerifiedAt = &now
	found.IsActive = true

	if err := s.store.Update(ctx, found); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Unexpected database error while saving user.")
	}

	if s.metrics != nil {
		s.metrics.UsersVerified.Inc()
	}
	s.logger.Info("user verified", "user_id", found.ID, "username", found.Username)

	return found.Sanitize(), nil
}

// List returns the sanitized view of every non-deleted user.
func (s *Service) List(ctx context.Context) ([]*user.Sanitized, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Unexpected database error while listing users.")
	}

	sanitized := make([]*user.Sanitized, 0, len(users))
	for _, u := range users {
		sanitized = append(sanitized, u.Sanitize())
	}
	return sanitized, nil
}

// translateCreateError maps a write-time uniqueness violation back to the
// conflicting field so a lost pre-check race still reports precisely.
func translateCreateError(err error) error {
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		if msg, ok := conflictMessages[conflict.Field]; ok {
			var fieldErrs dErrors.FieldErrors
			fieldErrs.Set(conflict.Field, msg)
			return fieldErrs.Err("Registration failed:")
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "Unexpected database error while saving user.")
}

func generateVerificationCode() (string, error) {
	buf := make([]byte, verificationCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
