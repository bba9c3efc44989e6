// Package errors provides unified error handling for the taskflow
// service layer. It implements structured error types with error codes,
// HTTP status mapping, and retryable detection following RFC 7807, and
// converts the core scheduling errors (cycles, dangling dependencies,
// stale task references) into client-facing responses that preserve the
// exact diagnostic, such as the full cycle path.
package errors
