// Package config loads runpad settings from an optional YAML file,
// RUNPAD_* environment variables and built-in defaults, using viper.
package config
