// Package config loads service configuration with Viper.
//
// Values come from a YAML file (./cmd/<service>/config.yml, ./config.yml, ...),
// then a .env file loaded with godotenv, then the process environment.
// Environment keys map onto nested config keys by replacing underscores with
// dots, so SSE_SEND_TIMEOUT=2s sets sse.send_timeout.
//
// # Usage
//
//	var cfg RelayConfig
//	if err := config.LoadConfig("relay", &cfg); err != nil { ... }
package config
