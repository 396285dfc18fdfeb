package main

import (
	"os"

	"github.com/wonny/aegis-options/cmd/strategist/commands"
)

// main is the entry point for the strategist CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/strategist [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
