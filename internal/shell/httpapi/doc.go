// Package httpapi exposes the order workflow over HTTP. It wires the
// command and query handlers into a chi router, authenticates requests
// with opaque bearer tokens resolved through a Redis-backed session
// cache, and maps domain faults to stable machine-readable error codes.
package httpapi
