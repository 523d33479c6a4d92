// Package adapter provides the semantic adapter contract and the shared
// plumbing used by CLI-backed implementations.
//
// This package contains the public contract that all semantic adapters must
// implement, the string-keyed registry hosts use to discover them, the error
// taxonomy they report, and the subprocess runner they invoke tools with.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// DefaultListLimit is the page size hosts use when they have no preference.
const DefaultListLimit = 100

// Adapter defines the capability set every semantic layer backend exposes.
// Implementations must be safe for concurrent use; each call is independent.
type Adapter interface {
	// ServiceType returns the registry key this adapter was registered under.
	ServiceType() string

	// ListMetrics returns the metrics known to the semantic layer, optionally
	// narrowed to a grouping path, paginated by limit and offset.
	// A limit of zero yields an empty slice.
	ListMetrics(ctx context.Context, path []string, limit, offset int) ([]core.MetricDefinition, error)

	// GetDimensions returns the dimension names usable with a metric.
	GetDimensions(ctx context.Context, metric string, path []string) ([]string, error)

	// QueryMetrics executes (or, for dry runs, explains) a metric query.
	QueryMetrics(ctx context.Context, req core.QueryRequest) (*core.QueryResult, error)

	// ValidateSemantic validates the semantic configuration.
	// Problems found by the tool are returned in the result, not as an error.
	ValidateSemantic(ctx context.Context) (*core.ValidationResult, error)
}
