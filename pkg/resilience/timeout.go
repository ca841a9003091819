package resilience

import (
	"context"
	"time"
)

// TimeoutConfig holds the nested deadlines for one collect or query flow.
// A command wraps a service call, the service call wraps the gateway
// conversation, the conversation wraps each POST attempt, and ledger
// queries carry their own short budgets. Every inner value sits below its
// outer one, so a layer always runs out of time before the caller above
// it gives up waiting.
type TimeoutConfig struct {
	Command time.Duration // whole CLI command, outermost

	Service time.Duration // one collect or status flow end to end

	Gateway       time.Duration // full gateway conversation including retries
	SingleAttempt time.Duration // one POST attempt

	SimpleQuery  time.Duration // single-row ledger reads and writes
	ComplexQuery time.Duration // sweeps and filtered listings
}

// DefaultTimeoutConfig carries the production budgets.
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Command:       60 * time.Second,
		Service:       50 * time.Second,
		Gateway:       30 * time.Second,
		SingleAttempt: 10 * time.Second,
		SimpleQuery:   2 * time.Second,
		ComplexQuery:  5 * time.Second,
	}
}

// SandboxTimeoutConfig shortens the outer budgets for test environments,
// where a hung call should fail fast rather than hold a terminal.
func SandboxTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Command:       45 * time.Second,
		Service:       35 * time.Second,
		Gateway:       15 * time.Second,
		SingleAttempt: 5 * time.Second,
		SimpleQuery:   2 * time.Second,
		ComplexQuery:  5 * time.Second,
	}
}

// CommandContext bounds a whole CLI command.
func (tc *TimeoutConfig) CommandContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Command)
}

// ServiceContext bounds one collect or status flow.
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// GatewayContext bounds a full gateway conversation.
func (tc *TimeoutConfig) GatewayContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Gateway)
}

// AttemptContext bounds a single gateway POST attempt.
func (tc *TimeoutConfig) AttemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SingleAttempt)
}

// SimpleQueryContext bounds single-row ledger operations.
func (tc *TimeoutConfig) SimpleQueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SimpleQuery)
}

// ComplexQueryContext bounds sweeps and filtered ledger listings.
func (tc *TimeoutConfig) ComplexQueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ComplexQuery)
}
