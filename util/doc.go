// Package util parses the human-readable sizes used in config.yml.
package util
