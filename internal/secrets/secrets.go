// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: proxy-api-key, gemini-api-key, crossref-mailto.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Well-known secret names.
const (
	ProxyAPIKey    = "proxy-api-key"
	GeminiAPIKey   = "gemini-api-key"
	CrossrefMailto = "crossref-mailto"
)

// Load returns every non-empty secret in dir keyed by file name. A
// missing directory yields an empty map. Dotfiles and subdirectories are
// ignored; an unreadable file is logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		v, err := readSecret(dir, entry.Name())
		if err != nil {
			zap.L().Warn("skipping unreadable secret", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		if v != "" {
			out[entry.Name()] = v
		}
	}
	return out, nil
}

func readSecret(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Source looks up a single credential by name. Implementations must not
// cache values: the operator may rotate a key between calls.
type Source interface {
	Lookup(name string) (string, bool)
}

// Dir is a Source backed by a secrets directory. Each Lookup re-reads
// the named file.
type Dir string

// Lookup returns the trimmed contents of dir/name.
func (d Dir) Lookup(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", false
	}
	v, err := readSecret(string(d), name)
	return v, err == nil && v != ""
}

// Env is a Source backed by environment variables. The name
// "gemini-api-key" with Prefix "LITREVIEW" maps to LITREVIEW_GEMINI_API_KEY.
type Env struct {
	Prefix string
}

// Lookup reads the environment variable derived from name.
func (e Env) Lookup(name string) (string, bool) {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if e.Prefix != "" {
		key = strings.ToUpper(e.Prefix) + "_" + key
	}
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// Static is a fixed Source, mostly useful in tests.
type Static map[string]string

// Lookup returns the mapped value.
func (s Static) Lookup(name string) (string, bool) {
	v, ok := s[name]
	return v, ok && v != ""
}

// Chain consults each Source in order and returns the first hit.
type Chain []Source

// Lookup returns the first non-empty value found.
func (c Chain) Lookup(name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}
