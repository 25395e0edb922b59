// Package output provides formatters for displaying execution results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//
// Each formatter implements the CLI's Formatter interface and can optionally
// implement Flushable for formats that accumulate results before output.
package output
