// Package main provides the CLI entry point for geoql.
package main

import (
	"os"

	"github.com/geoql-project/geoql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
