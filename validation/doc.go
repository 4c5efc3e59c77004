// Package validation provides struct-tag validation for streamkit
// configuration types using the validator library.
//
// # Usage
//
//	type Config struct {
//	    Parallelism int           `validate:"min=0"`
//	    ElasticTTL  time.Duration `validate:"min=0"`
//	}
//	err := validation.Validate(cfg)
//
// Failures are returned as structured errors with per-field details so
// callers can report exactly which scheduler setting is out of range.
package validation
