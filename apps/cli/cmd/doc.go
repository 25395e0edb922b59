// Package cmd implements the restfile CLI commands using Cobra.
//
// Available commands:
//   - run: Execute requests from .http files
//   - list: Display the requests defined in files
//   - stress: Drive a file's requests as a load test
//   - history: Show recent executions from the history database
//   - init: Create a starter project with example files
//   - version: Show restfile version information
//
// The CLI supports flags for environment selection, variable overrides,
// output formatting, watch mode, and execution history.
package cmd
