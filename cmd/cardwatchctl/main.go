// Package main is the entry point for cardwatchctl.
package main

import (
	"os"

	"github.com/cardwatch/cardwatch/cmd/cardwatchctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
