// Package logger provides structured logging for execkit components
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Usage
//
//	log := logger.NewDefault("executor")
//	log.Info("operation completed", logger.Fields("operation", "send_message"))
package logger
