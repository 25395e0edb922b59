// Package chain stores named responses and resolves cross-request
// back-references of the form {{name.response.body.path}} and
// {{name.response.headers.Header-Name}}.
//
// Chain resolution runs as its own pass before generic template resolution:
// the template resolver treats any unknown dotted name as one opaque
// variable, so running it first would swallow the chain syntax without ever
// matching it.
package chain
