// Package runner executes parsed request definitions.
//
// For each request it resolves the URL, header values, and body through the
// chain session and then the template resolver, sends the call through the
// HTTP client, and returns a structured result. Named responses feed back
// into the chain session so later requests can reference them. Failures are
// classified (cancelled, timeout, transport, generic) and carried inside
// the result rather than returned as errors.
package runner
