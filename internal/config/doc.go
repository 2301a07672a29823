// Package config loads, normalizes, and validates Chronicle configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as OPENAI_API_KEY and OPENROUTER_API_KEY. The Config type
// centralizes the analyzer capability set, retry and timeout bounds, and every
// directory a batch touches.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enumerations, and clear validation errors.
package config
