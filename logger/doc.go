// Package logger builds the zap logger used across runpad.
package logger
