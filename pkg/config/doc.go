// Package config loads service configuration. Defaults are overlaid first
// by an optional YAML file (CELLDB_CONFIG_FILE) and then by CELLDB_*
// environment variables, so the environment always wins.
package config
