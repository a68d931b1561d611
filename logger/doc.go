// Package logger provides structured logging backed by zerolog.
//
// It supports JSON and console output, level configuration, a process-wide
// global logger and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get("process")
//	log.Debug("spawned", logger.Fields(logger.FieldPID, pid))
package logger
