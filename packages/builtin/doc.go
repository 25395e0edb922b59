// Package builtin provides the built-in value generators available in
// request files.
//
// Available generators:
//   - $datetime [format] [offset unit]: current UTC time, RFC 3339 by default
//   - $localDatetime [format] [offset unit]: current local time
//   - $guid: freshly generated random UUID
//   - $randomInt [min] [max]: integer drawn from [min, max)
//   - $timestamp [offset unit]: whole seconds since the Unix epoch, UTC
//   - $processEnv name: process environment variable value, or empty
//   - $dotenv name: reserved for project .env lookup, currently empty
//
// Generators are invoked using the {{$name args...}} syntax in request
// files. A generator given arguments it cannot parse declines the call and
// the placeholder is left unchanged.
package builtin
