// Package config loads, normalizes, and validates manifestrecon configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a local .env file, and honours environment
// fallbacks such as MANIFESTRECON_MIRROR_TOKEN. The Config type centralizes every
// knob the CLI, the store, the extractor and the mirror need so that paths and
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
