// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAIBaseURL is used when the config names no proxy. Package-level var
// for test substitution.
var openAIBaseURL = "https://api.openai.com/v1/"

// OpenAIProvider calls an OpenAI-compatible chat-completions endpoint,
// normally the internal proxy, with the proxy-api-key as bearer token.
type OpenAIProvider struct {
	Config  types.AIConfig
	Secrets secrets.Source
	Client  *http.Client
}

// Invoke sends one chat completion. ModeJSON sets
// response_format={"type":"json_object"}.
func (p *OpenAIProvider) Invoke(ctx context.Context, req Request) (string, error) {
	key, err := credential(p.Secrets, secrets.ProxyAPIKey)
	if err != nil {
		return "", err
	}

	baseURL := p.Config.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(retryLimit(p.Config)),
	}
	if p.Client != nil {
		opts = append(opts, option.WithHTTPClient(p.Client))
	}
	if p.Config.UserAgent != "" {
		opts = append(opts, option.WithHeader("User-Agent", p.Config.UserAgent))
	}
	client := openai.NewClient(opts...)

	completion, err := client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrEmptyResponse)
	}
	choice := completion.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: response blocked by content filter", ErrProvider)
	}
	text := choice.Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: choice has no content", ErrEmptyResponse)
	}
	return text, nil
}

func (p *OpenAIProvider) buildParams(req Request) openai.ChatCompletionNewParams {
	model := p.Config.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}
	if p.Config.Temperature != nil {
		params.Temperature = openai.Float(*p.Config.Temperature)
	}
	if req.Mode == ModeJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

// classifyOpenAIError maps SDK errors onto the gateway error taxonomy.
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: proxy returned %d: %w", ErrAuthentication, apiErr.StatusCode, err)
		}
		return fmt.Errorf("%w: proxy returned %d: %w", ErrProvider, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}
