// Package config loads, normalizes, and validates satchel's TOML
// configuration. Values come from an optional config file layered over
// repository defaults; the delivery endpoint may also arrive via the
// SATCHEL_ENDPOINT environment variable.
package config
