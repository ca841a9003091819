package p2c

import (
	"fmt"
	"time"
)

// Environment selects which gateway the client talks to
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentTest       Environment = "test"
)

// Profile carries everything one client needs to hold a gateway
// conversation: endpoint, credentials, commerce identity, and the retry
// posture for the selected environment. It is a value, built once and never
// mutated; there is no process-global profile.
type Profile struct {
	Environment Environment

	// Gateway endpoint and Basic-auth credentials
	BaseURL  string
	Username string
	Password string

	// Commerce identity registered with the bank
	Affiliation   string // assigned merchant affiliation code
	CommercePhone string // merchant's P2C mobile number
	CommerceBank  string // merchant's bank code

	// Conversation posture
	Timeout           time.Duration // full-conversation HTTP client timeout
	MaxAttempts       int           // total attempts per request, first one included
	BackoffBase       time.Duration // first retry delay, doubled per retry
	RequestsPerSecond float64       // client-side pacing toward the bank

	Verbose bool // log request/response bodies at debug
}

// DefaultProfile returns the retry/timeout posture for an environment.
// Production talks to a slower, stricter gateway and gets the patient
// treatment; everything else fails fast.
func DefaultProfile(env Environment) Profile {
	if env == EnvironmentProduction {
		return Profile{
			Environment:       EnvironmentProduction,
			Timeout:           30 * time.Second,
			MaxAttempts:       3,
			BackoffBase:       2 * time.Second,
			RequestsPerSecond: 10,
		}
	}
	return Profile{
		Environment:       EnvironmentTest,
		Timeout:           15 * time.Second,
		MaxAttempts:       2,
		BackoffBase:       1 * time.Second,
		RequestsPerSecond: 10,
	}
}

// IsProduction reports whether this profile points at the live gateway
func (p Profile) IsProduction() bool {
	return p.Environment == EnvironmentProduction
}

// Validate checks that the profile can actually hold a conversation
func (p Profile) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("profile: base URL is required")
	}
	if p.Username == "" || p.Password == "" {
		return fmt.Errorf("profile: gateway credentials are required")
	}
	if p.Affiliation == "" {
		return fmt.Errorf("profile: affiliation code is required")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("profile: max attempts must be at least 1")
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("profile: timeout must be positive")
	}
	return nil
}
