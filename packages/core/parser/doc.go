// Package parser turns plain-text request files into request definitions.
//
// A document is processed as a line stream through three states: seeking
// (between requests), headers, and body. The grammar:
//   - "###" delimiter lines separate requests
//   - "# @name ident" (or "// @name ident") names the next request
//   - "@variable = value" declares a file-scope or request-local variable
//   - "METHOD url" starts a request; header lines follow until a blank
//     line, after which everything up to the next delimiter is the body
//
// Parsing never fails: malformed lines are skipped and an empty document
// parses to an empty result.
package parser
