// Package config provides configuration loading and validation for execkit
// services.
//
// It uses Viper to load a YAML config file, layered with a .env file and
// process environment variables, then unmarshals the result into a typed
// config struct. Struct-tag validation runs through the validation package.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.Load("executor-service", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
//
// Environment variables override file values using underscore-separated
// paths (e.g., REDIS_ADDR, WAL_TTL).
package config
