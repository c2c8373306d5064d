package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	werrors "github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/errors"
)

func TestResilientProviderOpensAfterThreshold(t *testing.T) {
	inner := &MockProvider{Err: errors.New("backend down")}
	p := NewResilientProvider(inner, BreakerConfig{FailureThreshold: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
			t.Fatal("expected backend error")
		}
	}
	if p.State() != "open" {
		t.Fatalf("state = %s, want open", p.State())
	}

	// Open circuit sheds load without touching the backend.
	before := inner.CallCount()
	_, err := p.Chat(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatal("expected circuit-open error")
	}
	we := werrors.AsWorkflowError(err)
	if we.Code != werrors.CodeLLMError || !we.Recoverable {
		t.Errorf("unexpected error shape: %+v", we)
	}
	if inner.CallCount() != before {
		t.Error("open circuit must not call the backend")
	}
}

func TestResilientProviderRecoversThroughHalfOpen(t *testing.T) {
	inner := &MockProvider{Err: errors.New("backend down")}
	p := NewResilientProvider(inner, BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Cooldown:         time.Millisecond,
	})

	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected failure")
	}
	if p.State() != "open" {
		t.Fatalf("state = %s, want open", p.State())
	}

	time.Sleep(5 * time.Millisecond)
	inner.Err = nil
	inner.Response = &ChatResponse{Content: "back"}

	for i := 0; i < 2; i++ {
		if _, err := p.Chat(context.Background(), ChatRequest{}); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}
	if p.State() != "closed" {
		t.Errorf("state = %s, want closed", p.State())
	}
}

func TestResilientProviderHalfOpenFailureReopens(t *testing.T) {
	inner := &MockProvider{Err: errors.New("still down")}
	p := NewResilientProvider(inner, BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Millisecond,
	})

	p.Chat(context.Background(), ChatRequest{})
	time.Sleep(5 * time.Millisecond)

	// Probe fails, circuit reopens immediately.
	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected probe failure")
	}
	if p.State() != "open" {
		t.Errorf("state = %s, want open", p.State())
	}
}

func TestResilientProviderClosedResetsOnSuccess(t *testing.T) {
	calls := 0
	inner := &MockProvider{ChatFunc: func(context.Context, ChatRequest) (*ChatResponse, error) {
		calls++
		if calls%2 == 1 {
			return nil, errors.New("flaky")
		}
		return &ChatResponse{Content: "ok"}, nil
	}}
	p := NewResilientProvider(inner, BreakerConfig{FailureThreshold: 2})

	// Alternating failures never accumulate to the threshold.
	for i := 0; i < 8; i++ {
		p.Chat(context.Background(), ChatRequest{})
	}
	if p.State() != "closed" {
		t.Errorf("state = %s, want closed", p.State())
	}
}
