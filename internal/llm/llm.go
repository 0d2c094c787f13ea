// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the model invocation gateway: a prompt goes in, raw text
// comes out. Provider variants hide their request shapes behind Provider;
// cleaning up the text (code fences, prose) is left to callers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

var (
	// ErrAuthentication means the provider credential is missing or was rejected.
	ErrAuthentication = errors.New("authentication failed")

	// ErrProvider means the call completed but the provider signalled failure.
	ErrProvider = errors.New("provider error")

	// ErrEmptyResponse means the call succeeded but returned no text.
	ErrEmptyResponse = errors.New("empty model response")
)

// Mode controls whether the provider is asked to constrain output to JSON.
type Mode int

const (
	ModeJSON Mode = iota
	ModeText
)

func (m Mode) String() string {
	if m == ModeText {
		return "text"
	}
	return "json"
}

// Request is one prompt to the model.
type Request struct {
	Prompt string
	System string
	Mode   Mode
}

// Provider sends a Request to a model and returns its raw text.
// Implementations read their credential on every call.
type Provider interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// NewProvider builds the Provider selected by cfg.Provider. Credentials
// are resolved from src on each Invoke, not here.
func NewProvider(cfg types.AIConfig, src secrets.Source) (Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		return &OpenAIProvider{Config: cfg, Secrets: src, Client: client}, nil
	case types.ProviderGemini:
		return &GeminiProvider{Config: cfg, Secrets: src, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q (want %q or %q)", cfg.Provider, types.ProviderOpenAI, types.ProviderGemini)
	}
}

// credential resolves name from src, wrapping ErrAuthentication when absent.
func credential(src secrets.Source, name string) (string, error) {
	if src == nil {
		return "", fmt.Errorf("%w: no credential source for %s", ErrAuthentication, name)
	}
	v, ok := src.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s is not set", ErrAuthentication, name)
	}
	return v, nil
}

// retryLimit is the retry budget for cfg: MaxRetries, DefaultMaxRetries
// when unset, none when negative.
func retryLimit(cfg types.AIConfig) int {
	switch {
	case cfg.MaxRetries == 0:
		return httputil.DefaultMaxRetries
	case cfg.MaxRetries < 0:
		return 0
	}
	return cfg.MaxRetries
}
