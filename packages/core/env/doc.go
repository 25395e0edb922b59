// Package env handles variable resolution for request files.
//
// It provides functionality for:
//   - {{variable}} interpolation with a fixed lookup order: built-in
//     generators, request-local variables, file-scope variables, session
//     overrides, the selected environment, the $shared section
//   - Loading environment documents (JSON or YAML) keyed by environment
//     name, validated against an embedded schema
//   - Parsing .env files and exporting them to the process environment
//
// Placeholders that resolve nowhere are left exactly as written, so
// partially configured documents stay usable.
package env
