// Package http provides the outbound HTTP client for request execution.
//
// It wraps the standard library's http package with additional behavior:
//   - Configurable timeout, redirect bounds, TLS validation, and proxy
//   - Transport/payload header partitioning (Content-* headers travel with
//     the body; Content-Length sets the declared length)
//   - Transparent gzip and deflate response decompression
//   - Charset-aware body text decoding from the Content-Type
//   - Set-Cookie parsing into cookie records
//   - Best-effort per-phase timings via httptrace
package http
