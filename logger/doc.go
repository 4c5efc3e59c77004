// Package logger provides structured logging for streamkit using zerolog.
//
// Schedulers and pipelines log lifecycle events (lane start/stop, disposal,
// deferred-worker rebinds) through component-scoped loggers, and the default
// unhandled-error sink reports task panics here unless a caller installs its
// own sink.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("scheduler")
//	log.Info("lane started", logger.Fields(logger.FieldWorker, workerID))
package logger
