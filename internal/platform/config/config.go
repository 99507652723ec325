package config

import (
	"os"
	"strconv"
	"time"
)

// VerificationCodeTTL is how long a freshly issued verification code stays valid.
var VerificationCodeTTL = 10 * time.Minute

// SMTP holds outbound mail settings. Host and port point at a fixed provider;
// From doubles as the authentication user.
type SMTP struct {
	Host     string
	Port     int
	From     string
	Password string
}

// Server captures process-level configuration.
type Server struct {
	Addr string

	// DatabaseURL is the main connection string. UserDatabaseURL, when set,
	// overrides it for the user-management store.
	DatabaseURL     string
	UserDatabaseURL string

	SMTP SMTP
}

// UserStoreURL returns the connection string the user store should use,
// preferring the user-management override.
func (s Server) UserStoreURL() string {
	if s.UserDatabaseURL != "" {
		return s.UserDatabaseURL
	}
	return s.DatabaseURL
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CHROME_TOUR_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		smtpHost = "smtp.gmail.com"
	}
	smtpPort := 465
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			smtpPort = port
		}
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		UserDatabaseURL: os.Getenv("USER_DATABASE_URL"),
		SMTP: SMTP{
			Host:     smtpHost,
			Port:     smtpPort,
			From:     os.Getenv("EMAIL_FROM"),
			Password: os.Getenv("EMAIL_FROM_PASSWORD"),
		},
	}
}
