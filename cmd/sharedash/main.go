// Package main provides the entry point for the sharedash CLI.
package main

import (
	"os"

	"github.com/sharedash/sharedash/cmd/sharedash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
