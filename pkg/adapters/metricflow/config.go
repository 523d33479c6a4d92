package metricflow

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/go-viper/mapstructure/v2"
)

// Default parameter values.
const (
	DefaultCLIPath = "mf"
	DefaultTimeout = 300 // seconds
)

// Params holds MetricFlow-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// CLIPath is the MetricFlow executable, either a path or a name looked up in PATH.
	CLIPath string `mapstructure:"cli_path"`

	// ProjectRoot is the MetricFlow project directory (empty: current directory).
	ProjectRoot string `mapstructure:"project_root"`

	// Environment selects a named environment/profile.
	Environment string `mapstructure:"environment"`

	// Timeout in seconds for a single invocation (0 uses DefaultTimeout).
	Timeout int `mapstructure:"timeout"`

	// ExtraArgs are shell-quoted global flags inserted before the subcommand.
	ExtraArgs string `mapstructure:"extra_args"`

	// Env holds extra environment variables for the subprocess.
	Env map[string]string `mapstructure:"env"`
}

// ParseParams decodes adapter params, applies defaults and validates them.
// Unknown keys are ignored so hosts can share one params block across adapters.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, &adapter.ConfigError{Field: "params", Err: err}
	}

	if p.CLIPath == "" {
		p.CLIPath = DefaultCLIPath
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Timeout < 0 {
		return nil, &adapter.ConfigError{Field: "timeout", Reason: fmt.Sprintf("must be positive, got %d", p.Timeout)}
	}
	if p.ProjectRoot != "" {
		abs, err := filepath.Abs(p.ProjectRoot)
		if err != nil {
			return nil, &adapter.ConfigError{Field: "project_root", Err: err}
		}
		p.ProjectRoot = abs
	}

	return p, nil
}

// TimeoutDuration returns the invocation timeout as a duration.
func (p Params) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}
