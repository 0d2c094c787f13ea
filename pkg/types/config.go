// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litreview/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ProviderKind selects the model provider behind the gateway.
type ProviderKind string

const (
	// ProviderOpenAI is an OpenAI-compatible chat-completions endpoint,
	// normally an internal proxy that expects a bearer token.
	ProviderOpenAI ProviderKind = "openai"

	// ProviderGemini is the Gemini generateContent API called directly
	// with an API key.
	ProviderGemini ProviderKind = "gemini"
)

// AIConfig holds settings for stages that call a Generative AI API.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the gateway implementation.
	Provider ProviderKind `json:"provider" yaml:"provider"`

	// Model is the model identifier. Empty uses the provider default.
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the provider endpoint (the proxy URL for openai).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature. Nil uses the provider default.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// MaxRetries bounds retries of rate-limited or overloaded calls for
	// every provider. Zero means 5; a negative value disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RegistryConfig holds settings for the bibliographic registry (CrossRef).
type RegistryConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the works endpoint root (default "https://api.crossref.org").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Mailto is sent as the polite-pool contact address.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty"`
}

// CollectionConfig holds settings for the persistent paper collection.
type CollectionConfig struct {
	// DataDir contains the SQLite database (litreview.db).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// PipelineConfig groups the settings one intake run needs. The caller
// snapshots it once per command and passes it into every pipeline call.
type PipelineConfig struct {
	AI         AIConfig         `json:"ai" yaml:"ai"`
	Registry   RegistryConfig   `json:"registry" yaml:"registry"`
	Collection CollectionConfig `json:"collection" yaml:"collection"`
	Profile    ResearchProfile  `json:"profile" yaml:"profile"`

	// ExcerptPages is how many leading pages the relevance check sees (default 3).
	ExcerptPages int `json:"excerpt_pages" yaml:"excerpt_pages"`

	// Concurrency bounds how many papers are processed at once (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}
