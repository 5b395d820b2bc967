// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

// Package config loads dsccd's environment-variable-only configuration.
package config

import (
	stderrors "errors"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

// Config is dsccd's complete runtime configuration. Every field is sourced
// from a single environment variable; there is no configuration file.
type Config struct {
	Theta            float32 `mapstructure:"theta"`
	QdrantHost       string  `mapstructure:"qdrant_host"`
	QdrantPort       string  `mapstructure:"qdrant_port"`
	QdrantCollection string  `mapstructure:"qdrant_collection"`
	Port             string  `mapstructure:"port"`
	NodeID           string  `mapstructure:"node_id"`
	DataDir          string  `mapstructure:"dscc_data_dir"`
	AuditEnabled     bool    `mapstructure:"dscc_audit"`
}

const (
	defaultTheta            = 0.85
	defaultQdrantHost       = "qdrant"
	defaultQdrantPort       = "6333"
	defaultQdrantCollection = "dscc_memory"
	defaultPort             = "50051"
	defaultNodeID           = "1"
	defaultDataDir          = "./data"
	defaultAuditEnabled     = true
)

// envKeys lists every environment variable Load binds through viper, in the
// shape BindEnv needs: the internal viper key and the literal env var name.
// THETA is deliberately absent — see loadTheta.
var envKeys = map[string]string{
	"qdrant_host":       "QDRANT_HOST",
	"qdrant_port":       "QDRANT_PORT",
	"qdrant_collection": "QDRANT_COLLECTION",
	"port":              "PORT",
	"node_id":           "NODE_ID",
	"dscc_data_dir":     "DSCC_DATA_DIR",
	"dscc_audit":        "DSCC_AUDIT",
}

// Load reads configuration from the environment, applying defaults for
// anything unset. THETA falls back to the default whenever it doesn't parse
// as a float64 or parses outside [0, 1], rather than failing Load outright.
// Everything Load's defaults cannot repair is reported by Validate.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("qdrant_host", defaultQdrantHost)
	v.SetDefault("qdrant_port", defaultQdrantPort)
	v.SetDefault("qdrant_collection", defaultQdrantCollection)
	v.SetDefault("port", defaultPort)
	v.SetDefault("node_id", defaultNodeID)
	v.SetDefault("dscc_data_dir", defaultDataDir)
	v.SetDefault("dscc_audit", defaultAuditEnabled)

	v.AutomaticEnv()
	for key, envVar := range envKeys {
		_ = v.BindEnv(key, envVar)
	}

	cfg := &Config{
		Theta:            clampTheta(loadTheta()),
		QdrantHost:       v.GetString("qdrant_host"),
		QdrantPort:       v.GetString("qdrant_port"),
		QdrantCollection: v.GetString("qdrant_collection"),
		Port:             v.GetString("port"),
		NodeID:           v.GetString("node_id"),
		DataDir:          v.GetString("dscc_data_dir"),
		AuditEnabled:     v.GetBool("dscc_audit"),
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, dsccerr.Wrap(stderrors.Join(errs...), dsccerr.CodeConfigValidateInvalidValue, "validating config")
	}

	return cfg, nil
}

// loadTheta reads THETA directly from the environment rather than through
// viper: viper.GetFloat64 casts via spf13/cast, and cast.ToFloat64 swallows
// a failed strconv.ParseFloat and returns 0 instead of viper's SetDefault
// value, since the default only applies when a key is unset in every
// source, not when the env var is present but unparseable. An absent or
// unparseable THETA falls back to defaultTheta here instead.
func loadTheta() float64 {
	raw := os.Getenv("THETA")
	if raw == "" {
		return defaultTheta
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultTheta
	}
	return v
}

// clampTheta rejects an already-parsed value outside [0, 1] the same way
// loadTheta rejects an unparseable one: falling back to defaultTheta rather
// than pinning to the boundary. A caller who sets THETA=1.5 almost certainly
// meant something other than "require exact match", so silently coercing to
// 1 would enforce a threshold nobody asked for.
func clampTheta(v float64) float32 {
	if v < 0 || v > 1 {
		return defaultTheta
	}
	return float32(v)
}

// Validate checks for values Load's clamping and defaults cannot repair on
// their own: an out-of-range network port or an empty required string.
func (c *Config) Validate() []error {
	var errs []error

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, dsccerr.Errorf(dsccerr.CodeConfigValidateInvalidValue,
			"config: PORT must be a number between 1 and 65535, got %q", c.Port))
	}
	if c.QdrantHost == "" {
		errs = append(errs, dsccerr.New(dsccerr.CodeConfigValidateInvalidValue, "config: QDRANT_HOST must not be empty"))
	}
	if c.QdrantCollection == "" {
		errs = append(errs, dsccerr.New(dsccerr.CodeConfigValidateInvalidValue, "config: QDRANT_COLLECTION must not be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, dsccerr.New(dsccerr.CodeConfigValidateInvalidValue, "config: DSCC_DATA_DIR must not be empty"))
	}
	if strings.TrimSpace(c.NodeID) == "" {
		errs = append(errs, dsccerr.New(dsccerr.CodeConfigValidateInvalidValue, "config: NODE_ID must not be empty"))
	}

	return errs
}
