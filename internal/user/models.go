// Package user holds the identity record at the center of the registration
// and verification workflows. Storage lives behind the store package; business
// rules live in the service package.
package user

import "time"

// User is the persisted account record. Username, email and phone number are
// each unique among non-deleted rows; the database constraint is the source
// of truth, pre-checks in the service are a fast path.
type User struct {
	ID          int64
	Username    string
	Email       string
	PhoneNumber string

	PasswordHash string

	IsActive  bool
	IsDeleted bool

	EmailVerified    bool
	VerificationCode string
	// VerificationAttempts exists in the data model but no workflow reads or
	// writes it yet. See DESIGN.md for the open question on attempt limits.
	VerificationAttempts      int
	VerificationCodeSentAt    *time.Time
	VerificationCodeExpiresAt *time.Time
	EmailVerifiedAt           *time.Time

	RegistrationIP        string
	RegistrationUserAgent string
	RegisteredVia         string
	RegistrationReferrer  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sanitized is the subset of a user record safe to return to a client. It
// never carries the password hash or the verification code.
type Sanitized struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	IsActive      bool   `json:"isActive"`
	EmailVerified bool   `json:"emailVerified"`
}

// Sanitize strips everything a client must not see.
func (u *User) Sanitize() *Sanitized {
	return &Sanitized{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
	}
}
