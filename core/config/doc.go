// Package config provides configuration management for the lobby tracker.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file (via godotenv).
//
// Configuration is split into partial structs owned by the packages they
// configure (database, logger, journal, ops). Default values are declared on
// the struct fields with a `default` tag and bound into Viper by reflection,
// so every key is registered for AutomaticEnv even when no value is set.
//
// Environment variables map to nested keys by replacing dots with
// underscores, e.g. DATABASE_HOST -> database.host.
package config
