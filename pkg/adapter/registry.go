package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory builds an adapter from its configuration.
// A nil logger must be accepted and treated as a discard logger.
type Factory func(cfg Config, logger *slog.Logger) (Adapter, error)

// Registry maps adapter type names to factories. It is safe for concurrent use.
// Names are matched case-insensitively.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// defaultRegistry holds the adapters registered from init() functions.
var defaultRegistry = NewRegistry()

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a factory under name. It panics if name is empty, factory
// is nil, or name is already taken, since all three are programming errors.
func (r *Registry) Register(name string, factory Factory) {
	key := normalizeName(name)
	if key == "" {
		panic("adapter: Register called with an empty name")
	}
	if factory == nil {
		panic("adapter: Register factory is nil for " + key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	r.factories[key] = factory
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[normalizeName(name)]
	return f, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// New builds the adapter named by cfg.Type.
func (r *Registry) New(cfg Config, logger *slog.Logger) (Adapter, error) {
	if strings.TrimSpace(cfg.Type) == "" {
		return nil, &ConfigError{Field: "type", Reason: "is required"}
	}

	factory, ok := r.Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: r.Names()}
	}
	return factory(cfg, logger)
}

// Register adds an adapter factory to the default registry.
// Adapter packages call it from init(); hosts blank-import them.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}

// Get retrieves an adapter factory from the default registry.
func Get(name string) (Factory, bool) {
	return defaultRegistry.Get(name)
}

// NewAdapter creates an adapter from the default registry based on cfg.Type.
// The logger is passed to the factory (nil uses a discard logger).
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	return defaultRegistry.New(cfg, logger)
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	return defaultRegistry.Names()
}

// IsRegistered reports whether an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := defaultRegistry.Get(name)
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
// It matches ErrConfig.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %s\nHint: Check adapter.type in semantic.yaml",
		e.Type, strings.Join(e.Available, ", "))
}

// Is matches ErrConfig.
func (e *UnknownAdapterError) Is(target error) bool { return target == ErrConfig }
