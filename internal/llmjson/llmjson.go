// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmjson recovers a JSON document from model text: code fences
// and surrounding prose are removed before decoding.
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON means the text contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

// StripFence unwraps text that is a single ``` fence: the info string
// ("json", "markdown", ...) and the last closing fence are removed. Text
// that does not start with a fence is only trimmed, so fences quoted
// inside a reply are left alone.
func StripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// An info string is a single word; anything else is content.
		if info := strings.TrimSpace(body[:nl]); !strings.ContainsAny(info, "{[ ") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimPrefix(strings.TrimPrefix(body, "json"), "JSON")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// Clean returns the JSON object embedded in text. Candidates are tried in
// order: the text unwrapped by StripFence, the body of a fence opening on
// a later line (prose before the fence), then the raw text. Each is cut
// from the first '{' to the last '}', and the first that is valid JSON
// wins. When none is valid the first candidate is returned for the caller
// to report.
func Clean(text string) string {
	candidates := []string{StripFence(text)}
	if i := strings.Index(text, "\n```"); i >= 0 {
		candidates = append(candidates, StripFence(text[i+1:]))
	}
	candidates = append(candidates, strings.TrimSpace(text))

	for _, c := range candidates {
		if obj := braces(c); json.Valid([]byte(obj)) {
			return obj
		}
	}
	return braces(candidates[0])
}

// braces trims s to the span from its first '{' to its last '}'. Text
// without braces is returned unchanged.
func braces(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// Decode cleans text and unmarshals it into v.
func Decode(text string, v any) error {
	s := Clean(text)
	if !strings.HasPrefix(s, "{") {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(s), v)
}
