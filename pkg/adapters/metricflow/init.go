// Package metricflow provides a MetricFlow semantic layer adapter.
//
// This file registers the MetricFlow adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/Datus-ai/datus-semantic-adapter/pkg/adapters/metricflow"
package metricflow

import (
	"log/slog"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
)

func init() {
	adapter.Register(ServiceType, func(cfg adapter.Config, logger *slog.Logger) (adapter.Adapter, error) {
		a, err := New(cfg, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}
