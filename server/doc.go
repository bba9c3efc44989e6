// Package server exposes the workflow engine over HTTP. It bundles a
// Gin engine behind an h2c-capable http.Server, a standard middleware
// stack (recovery, request-ID, CORS, logging, optional JWT auth), and
// the REST API for creating, executing, and persisting workflows.
package server
