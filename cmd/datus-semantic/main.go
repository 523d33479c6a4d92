// Package main is the entry point for the datus-semantic CLI.
package main

import (
	"os"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli"

	// Register adapters
	_ "github.com/Datus-ai/datus-semantic-adapter/pkg/adapters/metricflow"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
