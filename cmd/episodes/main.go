// Package main provides the episodes CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/jtomasevic/episodes/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
