// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"sync"
	"time"

	werrors "github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/errors"
)

// breakerState is the circuit state of a ResilientProvider.
type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half-open"
)

// BreakerConfig tunes the circuit breaker around a Provider.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	FailureThreshold int

	// SuccessThreshold is the number of successes in half-open before the
	// circuit closes again.
	SuccessThreshold int

	// Cooldown is how long an open circuit waits before probing half-open.
	Cooldown time.Duration
}

// ResilientProvider wraps a Provider with a circuit breaker so a failing
// completion backend sheds load fast instead of stacking timed-out calls.
// While the circuit is open, Chat fails immediately with a recoverable
// LLM_ERROR; stage agents surface that as an error decision and the case
// stays open for a later retry.
type ResilientProvider struct {
	inner  Provider
	config BreakerConfig

	mu           sync.Mutex
	state        breakerState
	failures     int
	successes    int
	lastFailTime time.Time
}

// NewResilientProvider wraps inner with circuit breaking. Zero config
// fields get conservative defaults.
func NewResilientProvider(inner Provider, config BreakerConfig) *ResilientProvider {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 2
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	return &ResilientProvider{
		inner:  inner,
		config: config,
		state:  stateClosed,
	}
}

// Chat implements Provider.
func (p *ResilientProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.allow(); err != nil {
		return nil, err
	}

	resp, err := p.inner.Chat(ctx, req)
	p.record(err)
	return resp, err
}

// State reports the current circuit state, for tests and health endpoints.
func (p *ResilientProvider) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.state)
}

func (p *ResilientProvider) allow() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateOpen {
		if time.Since(p.lastFailTime) >= p.config.Cooldown {
			p.state = stateHalfOpen
			p.successes = 0
		} else {
			return werrors.New(werrors.CodeLLMError, "completion provider circuit open", nil).
				WithRecoverable(true)
		}
	}
	return nil
}

func (p *ResilientProvider) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failures++
		p.lastFailTime = time.Now()
		if p.state == stateHalfOpen || p.failures >= p.config.FailureThreshold {
			p.state = stateOpen
			p.failures = 0
			p.successes = 0
		}
		return
	}

	switch p.state {
	case stateHalfOpen:
		p.successes++
		if p.successes >= p.config.SuccessThreshold {
			p.state = stateClosed
			p.failures = 0
			p.successes = 0
		}
	case stateClosed:
		p.failures = 0
	}
}

var _ Provider = (*ResilientProvider)(nil)
