// Package config loads, validates, and normalizes the divimport TOML
// configuration, providing defaults for every setting.
package config
