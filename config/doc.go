// Package config loads engine configuration from YAML. Everything has a
// working default; a zero Config is valid after Normalize.
package config
