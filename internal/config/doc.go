// Package config defines the configuration surface of marketscan: the
// documented crawl defaults, the flat Config struct populated from CLI
// flags, validation with sentinel errors, and the optional .marketscan
// YAML file carrying per-site settings.
package config
