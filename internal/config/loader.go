package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps CLI flag names to config keys. Flags not listed are not config.
var flagKeys = map[string]string{
	"adapter":      "adapter.type",
	"namespace":    "adapter.namespace",
	"cli-path":     "adapter.params.cli_path",
	"project-root": "adapter.params.project_root",
	"environment":  "adapter.params.environment",
	"timeout":      "adapter.params.timeout",
	"output":       "output",
	"verbose":      "verbose",
	"log-format":   "log_format",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// configFileIn returns the config file in dir, or "" if there is none.
func configFileIn(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// FindConfigFile searches startDir and its parents for semantic.yaml or semantic.yml.
// Returns empty string if not found within maxUpwardSearchLevels.
func FindConfigFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if path := configFileIn(dir); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load loads configuration from defaults, the config file, environment
// variables and flags, in increasing precedence. An empty cfgFile searches
// upward from the working directory. Only flags that were explicitly set
// are applied.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfgFile = FindConfigFile(cwd)
		}
	}
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			cfgFile = abs
		}
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: DATUS_SEMANTIC_ADAPTER__NAMESPACE -> adapter.namespace
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			val := posflag.FlagVal(flags, f)
			// Paths given on the command line are relative to the working directory.
			if f.Name == "project-root" {
				if s, ok := val.(string); ok && s != "" {
					if abs, err := filepath.Abs(s); err == nil {
						val = abs
					}
				}
			}
			return key, val
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile
	cfg.Adapter.Type = strings.ToLower(strings.TrimSpace(cfg.Adapter.Type))
	cfg.Adapter.Namespace = expandEnvVars(cfg.Adapter.Namespace)
	cfg.Adapter.Params = expandParams(cfg.Adapter.Params)
	resolveProjectRoot(&cfg)

	return &cfg, nil
}

// resolveProjectRoot anchors a relative project_root at the config file's
// directory, and defaults it to that directory.
func resolveProjectRoot(cfg *Config) {
	if cfg.File == "" {
		return
	}
	base := filepath.Dir(cfg.File)
	if cfg.Adapter.Params == nil {
		cfg.Adapter.Params = make(map[string]any)
	}

	root, _ := cfg.Adapter.Params["project_root"].(string)
	switch {
	case root == "":
		cfg.Adapter.Params["project_root"] = base
	case !filepath.IsAbs(root):
		cfg.Adapter.Params["project_root"] = filepath.Join(base, root)
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandParams expands ${VAR} in every string value, including nested maps and lists.
func expandParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for key, val := range params {
		out[key] = expandValue(val)
	}
	return out
}

func expandValue(v any) any {
	switch t := v.(type) {
	case string:
		return expandEnvVars(t)
	case map[string]any:
		return expandParams(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = expandValue(item)
		}
		return out
	default:
		return v
	}
}

// WithLogger stores a logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from ctx.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// configKey is used to store the loaded config in a context.
type configKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, _ := ctx.Value(configKey{}).(*Config)
	return cfg
}
