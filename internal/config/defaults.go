package config

// Default configuration values.
const (
	DefaultAdapter   = "metricflow"
	DefaultOutput    = "auto" // TTY=text, otherwise markdown
	DefaultLogFormat = "text"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "semantic.yaml"
	ConfigFileNameAlt = "semantic.yml"
)

// EnvPrefix prefixes environment overrides. A double underscore nests keys:
// DATUS_SEMANTIC_ADAPTER__NAMESPACE sets adapter.namespace.
const EnvPrefix = "DATUS_SEMANTIC_"

// OutputFormats lists accepted values of the output option.
var OutputFormats = []string{"auto", "text", "markdown", "json", "yaml", "csv"}

// LogFormats lists accepted values of the log_format option.
var LogFormats = []string{"text", "json"}

func defaults() map[string]any {
	return map[string]any{
		"adapter.type": DefaultAdapter,
		"output":       DefaultOutput,
		"log_format":   DefaultLogFormat,
		"verbose":      false,
	}
}
