package main

import (
	"os"

	"github.com/quantrail/riskledger/cmd/riskd/commands"
)

// main is the entry point for the riskledger CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
