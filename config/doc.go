// Package config loads and validates the service configuration.
//
// It uses Viper to merge a config.yml file, a .env file, and process
// environment variables, then unmarshals the result into Config.
// Environment variables map onto nested keys by underscore splitting,
// e.g. SERVER_PORT or RUNNER_MAX_PARALLEL.
package config
