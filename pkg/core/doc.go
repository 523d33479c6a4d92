// Package core defines the shared language of the semantic adapter system.
//
// This package contains:
//   - Domain entities (MetricDefinition, QueryResult, ValidationResult)
//   - Request types (QueryRequest, TimeRange)
//   - Configuration types (AdapterConfig)
//   - Severity levels shared by validation issues
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
