// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/internal/collection"
	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

// pipelineConfig snapshots the current configuration. Commands call it
// once and pass the result down; nothing below the CLI reads viper.
func pipelineConfig() (types.PipelineConfig, error) {
	cfg := types.PipelineConfig{
		AI: types.AIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("timeout"),
				UserAgent: viper.GetString("user_agent"),
			},
			Provider:   types.ProviderKind(viper.GetString("provider")),
			Model:      viper.GetString("model"),
			BaseURL:    viper.GetString("base_url"),
			MaxRetries: viper.GetInt("max_retries"),
		},
		Registry: types.RegistryConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("registry.timeout"),
				UserAgent: viper.GetString("user_agent"),
			},
			BaseURL: viper.GetString("registry.base_url"),
			Mailto:  viper.GetString("registry.mailto"),
		},
		Collection:   types.CollectionConfig{DataDir: viper.GetString("data_dir")},
		ExcerptPages: viper.GetInt("excerpt_pages"),
		Concurrency:  viper.GetInt("concurrency"),
	}
	if viper.IsSet("temperature") {
		t := viper.GetFloat64("temperature")
		cfg.AI.Temperature = &t
	}
	if cfg.Registry.Mailto == "" {
		if v, ok := secretSource().Lookup(secrets.CrossrefMailto); ok {
			cfg.Registry.Mailto = v
		}
	}

	profile, err := loadProfile()
	if err != nil {
		return cfg, err
	}
	cfg.Profile = profile
	return cfg, nil
}

// loadProfile reads profile_file when set, else the inline profile key.
func loadProfile() (types.ResearchProfile, error) {
	var p types.ResearchProfile
	if path := viper.GetString("profile_file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return p, fmt.Errorf("reading profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parsing profile %s: %w", path, err)
		}
		return p, nil
	}
	if viper.IsSet("profile") {
		if err := viper.UnmarshalKey("profile", &p); err != nil {
			return p, fmt.Errorf("parsing profile: %w", err)
		}
	}
	return p, nil
}

// secretSource checks LITREVIEW_* variables before the secrets directory.
// Values are read on every lookup.
func secretSource() secrets.Source {
	return secrets.Chain{
		secrets.Env{Prefix: "LITREVIEW"},
		secrets.Dir(viper.GetString("secrets_dir")),
	}
}

// openCollection opens the SQLite-backed collection in data_dir.
func openCollection(ctx context.Context, cfg types.CollectionConfig) (*collection.Manager, error) {
	store, err := collection.OpenSQLite(cfg)
	if err != nil {
		return nil, err
	}
	m, err := collection.Open(ctx, store, collection.WithLogger(zap.L()))
	if err != nil {
		store.Close()
		return nil, err
	}
	return m, nil
}
