package core

// AdapterConfig holds the construction-time configuration of a semantic adapter.
type AdapterConfig struct {
	// Type is the registry key of the adapter (e.g. "metricflow").
	Type string `koanf:"type"`

	// Namespace identifies the semantic layer namespace. Required.
	Namespace string `koanf:"namespace"`

	// Params holds adapter-specific settings, decoded by the adapter itself.
	Params map[string]any `koanf:"params"`
}
