// Package main is the entry point for the dagrund graph runner.
package main

import (
	"fmt"
	"os"

	"github.com/dagrun-dev/dagrun/cmd"
	_ "github.com/dagrun-dev/dagrun/pkg/registry" // registers built-in worker kinds
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
