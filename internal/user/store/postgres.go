package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"chrometour/internal/user"
	"chrometour/pkg/platform/sentinel"
)

// Postgres persists users in PostgreSQL. Uniqueness is enforced by named
// constraints; a violated constraint is mapped back to the conflicting field
// so the service can report a precise error even when a concurrent insert
// wins the race after the pre-check.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

// constraintFields maps unique constraint names to the field reported to
// clients. Keep in sync with EnsureSchema.
var constraintFields = map[string]string{
	"uq_users_username":     "username",
	"uq_users_email":        "email",
	"uq_users_phone_number": "phone_number",
}

// EnsureSchema creates the users table if it does not exist. The service
// creates its own tables at boot; migrations for the wider system live
// elsewhere.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                           BIGSERIAL PRIMARY KEY,
	username                     VARCHAR(50)  NOT NULL,
	email                        VARCHAR(100) NOT NULL,
	phone_number                 VARCHAR(20),
	password_hash                TEXT NOT NULL,
	is_active                    BOOLEAN NOT NULL DEFAULT FALSE,
	is_deleted                   BOOLEAN NOT NULL DEFAULT FALSE,
	email_verified               BOOLEAN NOT NULL DEFAULT FALSE,
	verification_code            VARCHAR(10),
	verification_attempts        INTEGER NOT NULL DEFAULT 0,
	verification_code_sent_at    TIMESTAMPTZ,
	verification_code_expires_at TIMESTAMPTZ,
	email_verified_at            TIMESTAMPTZ,
	registration_ip              VARCHAR(45),
	registration_user_agent      VARCHAR(255),
	registered_via               VARCHAR(50),
	registration_referrer        VARCHAR(255),
	created_at                   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_users_username UNIQUE (username),
	CONSTRAINT uq_users_email UNIQUE (email),
	CONSTRAINT uq_users_phone_number UNIQUE (phone_number)
)`
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

const userColumns = `
	id, username, email, phone_number, password_hash,
	is_active, is_deleted, email_verified, verification_code,
	verification_attempts, verification_code_sent_at,
	verification_code_expires_at, email_verified_at,
	registration_ip, registration_user_agent, registered_via,
	registration_referrer, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, u *user.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (
			username, email, phone_number, password_hash,
			is_active, is_deleted, email_verified, verification_code,
			verification_attempts, verification_code_sent_at,
			verification_code_expires_at,
			registration_ip, registration_user_agent, registered_via,
			registration_referrer
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		u.Username,
		u.Email,
		u.PhoneNumber,
		u.PasswordHash,
		u.IsActive,
		u.IsDeleted,
		u.EmailVerified,
		u.VerificationCode,
		u.VerificationAttempts,
		u.VerificationCodeSentAt,
		u.VerificationCodeExpiresAt,
		u.RegistrationIP,
		u.RegistrationUserAgent,
		u.RegisteredVia,
		u.RegistrationReferrer,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translateWriteError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.findOne(ctx, "username = $1", username)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findOne(ctx, "email = $1", email)
}

func (s *Postgres) FindByPhone(ctx context.Context, phone string) (*user.User, error) {
	return s.findOne(ctx, "phone_number = $1", phone)
}

func (s *Postgres) FindByEmailOrPhone(ctx context.Context, identifier string) (*user.User, error) {
	return s.findOne(ctx, "(email = $1 OR phone_number = $1)", identifier)
}

func (s *Postgres) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			is_active = $2,
			is_deleted = $3,
			email_verified = $4,
			verification_code = $5,
			verification_attempts = $6,
			verification_code_expires_at = $7,
			email_verified_at = $8,
			updated_at = now()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		u.ID,
		u.IsActive,
		u.IsDeleted,
		u.EmailVerified,
		u.VerificationCode,
		u.VerificationAttempts,
		u.VerificationCodeExpiresAt,
		u.EmailVerifiedAt,
	).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %d: %w", u.ID, sentinel.ErrNotFound)
	}
	if err != nil {
		return translateWriteError(err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*user.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE is_deleted = FALSE ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Postgres) findOne(ctx context.Context, where string, args ...any) (*user.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE is_deleted = FALSE AND ` + where
	row := s.db.QueryRowContext(ctx, query, args...)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*user.User, error) {
	var (
		u         user.User
		phone     sql.NullString
		code      sql.NullString
		sentAt    sql.NullTime
		expiresAt sql.NullTime
		verified  sql.NullTime
		regIP     sql.NullString
		regUA     sql.NullString
		regVia    sql.NullString
		regRef    sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &phone, &u.PasswordHash,
		&u.IsActive, &u.IsDeleted, &u.EmailVerified, &code,
		&u.VerificationAttempts, &sentAt, &expiresAt, &verified,
		&regIP, &regUA, &regVia, &regRef, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.PhoneNumber = phone.String
	u.VerificationCode = code.String
	u.RegistrationIP = regIP.String
	u.RegistrationUserAgent = regUA.String
	u.RegisteredVia = regVia.String
	u.RegistrationReferrer = regRef.String
	if sentAt.Valid {
		u.VerificationCodeSentAt = &sentAt.Time
	}
	if expiresAt.Valid {
		u.VerificationCodeExpiresAt = &expiresAt.Time
	}
	if verified.Valid {
		u.EmailVerifiedAt = &verified.Time
	}
	return &u, nil
}

// translateWriteError maps a unique violation back to the conflicting field
// by constraint name. Unknown constraints surface as a field-less conflict.
func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &ConflictError{Field: constraintFields[pgErr.ConstraintName]}
	}
	return fmt.Errorf("write user: %w", err)
}
