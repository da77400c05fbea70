// Package main is the entry point for the projex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/lollopanta/Projex-sub000/internal/app"
	"github.com/lollopanta/Projex-sub000/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	// Create dependency injection container
	container, err := app.New(cwd)
	if err != nil {
		// The git backend needs a repository; help and the config template do not.
		if canRunWithoutContainer(args) {
			return cli.NewRootCommand(nil, version).Execute()
		}
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() { _ = container.Close() }()

	// Create and execute root command
	rootCmd := cli.NewRootCommand(container, version)
	return rootCmd.Execute()
}

func canRunWithoutContainer(args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "help", "completion":
		return true
	case "config":
		return len(args) > 1 && args[1] == "template"
	}
	for _, arg := range args {
		if arg == "--version" || arg == "-v" || arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}
