package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"chrometour/internal/events"
	"chrometour/internal/platform/metrics"
	"chrometour/internal/user"
	"chrometour/internal/user/store"
	dErrors "chrometour/pkg/domain-errors"
)

type UserServiceSuite struct {
	suite.Suite
	store   *store.Memory
	bus     *events.Bus
	metrics *metrics.Metrics
	service *Service

	// now is the injected clock; tests advance it to cross code expiry.
	now time.Time
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.bus = events.New()
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store, s.bus,
		WithMetrics(s.metrics),
		WithNow(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *UserServiceSuite) register(username, email, phone string) (*user.Sanitized, error) {
	return s.service.Register(context.Background(), RegisterInput{
		Username:    username,
		Email:       email,
		PhoneNumber: phone,
		Password:    "p1",
	})
}

func (s *UserServiceSuite) storedUser(email string) *user.User {
	u, err := s.store.FindByEmail(context.Background(), email)
	s.Require().NoError(err)
	return u
}

func (s *UserServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.bus)
		s.Error(err)
		s.Contains(err.Error(), "user store is required")
	})

	s.Run("nil bus returns error", func() {
		_, err := New(s.store, nil)
		s.Error(err)
		s.Contains(err.Error(), "event bus is required")
	})
}

func (s *UserServiceSuite) TestRegisterValidation() {
	ctx := context.Background()

	s.Run("malformed email fails naming the email field and writes nothing", func() {
		_, err := s.register("alice", "not-an-email", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("Registration failed:\nemail: Invalid email format.", err.Error())

		users, listErr := s.store.List(ctx)
		s.Require().NoError(listErr)
		s.Empty(users)
	})

	s.Run("duplicate username fails naming the username field", func() {
		_, err := s.register("alice", "alice@x.com", "")
		s.Require().NoError(err)

		_, err = s.register("alice", "bob@y.com", "")
		s.Require().Error(err)
		s.Equal("Registration failed:\nusername: Username is already taken.", err.Error())
	})

	s.Run("all conflicting fields are named in one failure", func() {
		_, err := s.register("carol", "carol@x.com", "+15550002")
		s.Require().NoError(err)

		_, err = s.service.Register(ctx, RegisterInput{
			Username:    "carol",
			Email:       "carol@x.com",
			PhoneNumber: "+15550002",
			Password:    "p1",
		})
		s.Require().Error(err)

		var domainErr *dErrors.Error
		s.Require().ErrorAs(err, &domainErr)
		_, hasUsername := domainErr.Field("username")
		_, hasEmail := domainErr.Field("email")
		_, hasPhone := domainErr.Field("phone_number")
		s.True(hasUsername)
		s.True(hasEmail)
		s.True(hasPhone)
	})

	s.Run("duplicate email replaces the format error in place", func() {
		_, err := s.register("dave", "dave@x.com", "")
		s.Require().NoError(err)

		_, err = s.register("erin", "dave@x.com", "")
		s.Require().Error(err)
		s.Equal("Registration failed:\nemail: Email is already registered.", err.Error())
	})

	s.Run("no partial record remains after validation failure", func() {
		before, err := s.store.List(ctx)
		s.Require().NoError(err)

		_, regErr := s.register("alice", "someone-else@x.com", "")
		s.Require().Error(regErr)

		after, err := s.store.List(ctx)
		s.Require().NoError(err)
		s.Len(after, len(before))
	})
}

func (s *UserServiceSuite) TestRegisterSuccess() {
	sanitized, err := s.register("alice", "alice@x.com", "")
	s.Require().NoError(err)

	s.Run("returns sanitized fields only", func() {
		s.Equal("alice", sanitized.Username)
		s.Equal("alice@x.com", sanitized.Email)
		s.False(sanitized.IsActive)
		s.False(sanitized.EmailVerified)
		s.NotZero(sanitized.ID)
	})

	stored := s.storedUser("alice@x.com")

	s.Run("record starts inactive and unverified", func() {
		s.False(stored.IsActive)
		s.False(stored.EmailVerified)
	})

	s.Run("verification code is six hex characters", func() {
		s.Len(stored.VerificationCode, 6)
		s.Regexp("^[0-9a-f]{6}$", stored.VerificationCode)
	})

	s.Run("expiry is exactly ten minutes after issuance", func() {
		s.Require().NotNil(stored.VerificationCodeExpiresAt)
		s.Require().NotNil(stored.VerificationCodeSentAt)
		s.Equal(10*time.Minute, stored.VerificationCodeExpiresAt.Sub(*stored.VerificationCodeSentAt))
		s.True(stored.VerificationCodeExpiresAt.Equal(s.now.Add(10 * time.Minute)))
	})

	s.Run("password is stored as a bcrypt hash", func() {
		s.NotEqual("p1", stored.PasswordHash)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("p1")))
	})

	s.Run("users created metric is bumped", func() {
		s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.UsersCreated))
	})
}

func (s *UserServiceSuite) TestRegisterPublishesEvent() {
	var published atomic.Int32
	var receivedEmail atomic.Value
	s.bus.Subscribe(events.UserRegistered, func(_ context.Context, e events.Event) {
		if u, ok := e.Payload.(*user.User); ok {
			receivedEmail.Store(u.Email)
			published.Add(1)
		}
	})

	_, err := s.register("alice", "alice@x.com", "")
	s.Require().NoError(err)
	s.bus.Wait()

	s.Equal(int32(1), published.Load())
	s.Equal("alice@x.com", receivedEmail.Load())
}

func (s *UserServiceSuite) TestRegisterEventNotPublishedOnFailure() {
	var published atomic.Int32
	s.bus.Subscribe(events.UserRegistered, func(_ context.Context, _ events.Event) { published.Add(1) })

	_, err := s.register("alice", "bad-email", "")
	s.Require().Error(err)
	s.bus.Wait()

	s.Zero(published.Load())
}

// TestWriteTimeConflictMapsToField covers the path taken when a concurrent
// insert wins after the pre-checks passed: the store's constraint violation
// still produces the same field-level message the pre-check would have.
func (s *UserServiceSuite) TestWriteTimeConflictMapsToField() {
	s.Run("known constraint field", func() {
		err := translateCreateError(&store.ConflictError{Field: "username"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("Registration failed:\nusername: Username is already taken.", err.Error())
	})

	s.Run("unrecognized constraint falls back to internal", func() {
		err := translateCreateError(&store.ConflictError{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal("Unexpected database error while saving user.", err.Error())
	})
}

func (s *UserServiceSuite) TestVerify() {
	ctx := context.Background()
	_, err := s.register("alice", "alice@x.com", "+15550001")
	s.Require().NoError(err)
	code := s.storedUser("alice@x.com").VerificationCode

	s.Run("unknown identifier fails with user not found", func() {
		_, err := s.service.Verify(ctx, "ghost@x.com", code)
		s.Require().Error(err)
		s.Equal("User not found.", err.Error())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("wrong code fails and leaves the record unchanged", func() {
		_, err := s.service.Verify(ctx, "alice@x.com", "ffffff")
		s.Require().Error(err)
		s.Equal("Invalid verification code.", err.Error())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		stored := s.storedUser("alice@x.com")
		s.False(stored.EmailVerified)
		s.False(stored.IsActive)
	})

	s.Run("correct code before expiry verifies and activates", func() {
		sanitized, err := s.service.Verify(ctx, "alice@x.com", code)
		s.Require().NoError(err)
		s.True(sanitized.EmailVerified)
		s.True(sanitized.IsActive)

		stored := s.storedUser("alice@x.com")
		s.True(stored.EmailVerified)
		s.True(stored.IsActive)
		s.Require().NotNil(stored.EmailVerifiedAt)
		s.True(stored.EmailVerifiedAt.Equal(s.now))
		s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.UsersVerified))
	})

	s.Run("verification works via phone identifier too", func() {
		_, err := s.register("bob", "bob@y.com", "+15550002")
		s.Require().NoError(err)
		bobCode := s.storedUser("bob@y.com").VerificationCode

		sanitized, err := s.service.Verify(ctx, "+15550002", bobCode)
		s.Require().NoError(err)
		s.True(sanitized.EmailVerified)
	})

	s.Run("repeat verification with the same code still succeeds", func() {
		// No invalidation-after-use is specified; see DESIGN.md.
		sanitized, err := s.service.Verify(ctx, "alice@x.com", code)
		s.Require().NoError(err)
		s.True(sanitized.EmailVerified)
	})
}

func (s *UserServiceSuite) TestVerifyExpiredCode() {
	ctx := context.Background()
	_, err := s.register("alice", "alice@x.com", "")
	s.Require().NoError(err)
	code := s.storedUser("alice@x.com").VerificationCode

	s.Run("code is still valid just before the expiry instant", func() {
		s.now = s.now.Add(10*time.Minute - time.Second)
		_, err := s.service.Verify(ctx, "alice@x.com", code)
		s.NoError(err)
	})
}

func (s *UserServiceSuite) TestVerifyElevenMinutesLater() {
	ctx := context.Background()
	_, err := s.register("alice", "alice@x.com", "")
	s.Require().NoError(err)
	code := s.storedUser("alice@x.com").VerificationCode

	s.now = s.now.Add(11 * time.Minute)

	_, err = s.service.Verify(ctx, "alice@x.com", code)
	s.Require().Error(err)
	s.Equal("Verification code has expired.", err.Error())
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	stored := s.storedUser("alice@x.com")
	s.False(stored.EmailVerified)
	s.False(stored.IsActive)
}

func (s *UserServiceSuite) TestVerifyChecksCodeBeforeExpiry() {
	// A wrong code on an expired record reports the code mismatch, matching
	// the check order of the workflow.
	ctx := context.Background()
	_, err := s.register("alice", "alice@x.com", "")
	s.Require().NoError(err)

	s.now = s.now.Add(11 * time.Minute)

	_, err = s.service.Verify(ctx, "alice@x.com", "ffffff")
	s.Require().Error(err)
	s.Equal("Invalid verification code.", err.Error())
}

func (s *UserServiceSuite) TestList() {
	ctx := context.Background()
	_, err := s.register("alice", "alice@x.com", "")
	s.Require().NoError(err)
	_, err = s.register("bob", "bob@y.com", "")
	s.Require().NoError(err)

	users, err := s.service.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("alice", users[0].Username)
	s.Equal("bob", users[1].Username)
}

// TestRegistrationScenario walks the documented end-to-end scenario.
func (s *UserServiceSuite) TestRegistrationScenario() {
	ctx := context.Background()

	sanitized, err := s.register("alice", "alice@x.com", "")
	s.Require().NoError(err)
	s.False(sanitized.IsActive)
	s.False(sanitized.EmailVerified)

	_, err = s.register("alice", "bob@y.com", "")
	s.Require().Error(err)
	var domainErr *dErrors.Error
	s.Require().ErrorAs(err, &domainErr)
	_, hasUsername := domainErr.Field("username")
	s.True(hasUsername)

	_, err = s.service.Verify(ctx, "alice@x.com", "000000")
	s.Require().Error(err)
	s.Equal("Invalid verification code.", err.Error())

	code := s.storedUser("alice@x.com").VerificationCode
	s.now = s.now.Add(11 * time.Minute)
	_, err = s.service.Verify(ctx, "alice@x.com", code)
	s.Require().Error(err)
	s.Equal("Verification code has expired.", err.Error())
}
