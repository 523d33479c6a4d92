// Package config loads datus-semantic configuration.
// It is decoupled from cobra so hosts embedding the adapter can reuse it.
package config

import (
	"maps"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
)

// AdapterSection selects and configures the semantic-layer adapter.
type AdapterSection struct {
	Type      string         `koanf:"type"`
	Namespace string         `koanf:"namespace"`
	Params    map[string]any `koanf:"params"`
}

// Config holds all configuration options.
type Config struct {
	Adapter   AdapterSection `koanf:"adapter"`
	Output    string         `koanf:"output"`
	Verbose   bool           `koanf:"verbose"`
	LogFormat string         `koanf:"log_format"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// ToAdapterConfig converts the adapter section into the form adapter factories accept.
func (c *Config) ToAdapterConfig() core.AdapterConfig {
	params := make(map[string]any, len(c.Adapter.Params))
	maps.Copy(params, c.Adapter.Params)
	return core.AdapterConfig{
		Type:      c.Adapter.Type,
		Namespace: c.Adapter.Namespace,
		Params:    params,
	}
}
