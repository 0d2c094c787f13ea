// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

const (
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultGeminiTemperature = 0.2
)

// geminiAPIBase is the Generative Language API root. Package-level var for
// test substitution.
var geminiAPIBase = "https://generativelanguage.googleapis.com"

// GeminiProvider calls the Gemini generateContent API directly with the
// gemini-api-key.
type GeminiProvider struct {
	Config  types.AIConfig
	Secrets secrets.Source
	Client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Invoke sends one generateContent request. The generation config carries
// responseMimeType application/json for ModeJSON, text/plain otherwise.
func (g *GeminiProvider) Invoke(ctx context.Context, req Request) (string, error) {
	key, err := credential(g.Secrets, secrets.GeminiAPIKey)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(g.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	model := g.Config.Model
	if model == "" {
		model = defaultGeminiModel
	}
	base := g.Config.BaseURL
	if base == "" {
		base = geminiAPIBase
	}
	endpoint := strings.TrimRight(base, "/") + "/v1beta/models/" + model + ":generateContent"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", key)
	if g.Config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", g.Config.UserAgent)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, retryLimit(g.Config))
	if err != nil {
		return "", fmt.Errorf("%w: calling Gemini API: %w", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", classifyGeminiStatus(resp.StatusCode, raw)
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("%w: decoding Gemini response: %w", ErrProvider, err)
	}

	if gResp.PromptFeedback != nil && gResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrProvider, gResp.PromptFeedback.BlockReason)
	}
	if len(gResp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		if reason := gResp.Candidates[0].FinishReason; reason != "" && reason != "STOP" {
			return "", fmt.Errorf("%w: finish reason %s", ErrProvider, reason)
		}
		return "", fmt.Errorf("%w: candidate has no text", ErrEmptyResponse)
	}
	return text, nil
}

func (g *GeminiProvider) buildRequest(req Request) geminiRequest {
	temp := defaultGeminiTemperature
	if g.Config.Temperature != nil {
		temp = *g.Config.Temperature
	}
	mime := "application/json"
	if req.Mode == ModeText {
		mime = "text/plain"
	}

	out := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      temp,
			ResponseMimeType: mime,
		},
	}
	if strings.TrimSpace(req.System) != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	return out
}

// classifyGeminiStatus maps a non-200 response onto the gateway taxonomy.
// Gemini reports an invalid key as 400 INVALID_ARGUMENT.
func classifyGeminiStatus(status int, raw []byte) error {
	var eb geminiErrorBody
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error.Message != "" {
		msg = eb.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: Gemini API returned %d: %s", ErrAuthentication, status, msg)
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "api key"):
		return fmt.Errorf("%w: Gemini API returned %d: %s", ErrAuthentication, status, msg)
	}
	return fmt.Errorf("%w: Gemini API returned %d: %s", ErrProvider, status, msg)
}
