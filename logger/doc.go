// Package logger provides structured logging for taskflow services
// using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, and component-scoped loggers with structured fields
// for workflow and task identifiers.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("taskflowd").WithComponent("runner")
//	log.Info("task completed", logger.Fields(logger.FieldTaskID, "build"))
package logger
