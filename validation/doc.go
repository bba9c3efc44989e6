// Package validation provides struct-tag validation backed by
// go-playground/validator plus a small fluent checker for request
// fields that carry no struct tags. Both report failures as
// *errors.AppError values with per-field details, so HTTP handlers
// can pass them straight to the response writer.
package validation
