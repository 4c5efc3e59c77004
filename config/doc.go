// Package config provides configuration loading and validation for
// streamkit.
//
// It uses Viper to load configuration from a config.yml file and
// environment variables, with .env support via godotenv. Environment
// variables override file values using the STREAMKIT_ prefix with
// underscore-separated paths (e.g., STREAMKIT_SCHEDULER_PARALLELISM).
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	logger.Init(cfg.Logging)
//	scheduler.InitDefaults(cfg.Scheduler)
package config
