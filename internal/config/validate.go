package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
)

// Validate checks that the configuration can build an adapter.
// The adapter registry is the single source of truth for valid types.
func (c *Config) Validate() error {
	if c.Adapter.Type == "" {
		return &adapter.ConfigError{Field: "adapter.type", Reason: "is required"}
	}
	if !adapter.IsRegistered(c.Adapter.Type) {
		return &adapter.UnknownAdapterError{
			Type:      c.Adapter.Type,
			Available: adapter.ListAdapters(),
		}
	}
	if strings.TrimSpace(c.Adapter.Namespace) == "" {
		return &adapter.ConfigError{
			Field:  "adapter.namespace",
			Reason: "is required\nHint: Set adapter.namespace in semantic.yaml or pass --namespace",
		}
	}
	if !slices.Contains(OutputFormats, c.Output) {
		return fmt.Errorf("unknown output format %q (expected one of %s)", c.Output, strings.Join(OutputFormats, ", "))
	}
	if !slices.Contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("unknown log format %q (expected one of %s)", c.LogFormat, strings.Join(LogFormats, ", "))
	}
	return nil
}
