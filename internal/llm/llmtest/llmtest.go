// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/pdiddy/litreview/internal/llm"
)

// Provider answers each Invoke with Respond. It records every request.
type Provider struct {
	Respond func(req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

// Reply returns a Provider that always answers text.
func Reply(text string) *Provider {
	return &Provider{Respond: func(llm.Request) (string, error) { return text, nil }}
}

// Fail returns a Provider that always fails with err.
func Fail(err error) *Provider {
	return &Provider{Respond: func(llm.Request) (string, error) { return "", err }}
}

// Invoke records req and delegates to Respond.
func (p *Provider) Invoke(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Respond(req)
}

// Requests returns a copy of the recorded requests.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}
