package runner

import (
	"time"

	"go.uber.org/zap"
)

// Observer is notified of run outcomes. *metrics.Metrics implements it.
type Observer interface {
	ObserveRun(language, status string, d time.Duration)
	ObserveRejected(language string)
}

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

type dispatcherConfig struct {
	timeout  time.Duration
	logger   *zap.Logger
	observer Observer
}

func defaultDispatcherConfig() dispatcherConfig {
	return dispatcherConfig{
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
}

// WithTimeout sets the per-run deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *dispatcherConfig) {
		c.timeout = d
	}
}

// WithLogger sets the logger for run start, finish and rejection events.
func WithLogger(l *zap.Logger) Option {
	return func(c *dispatcherConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver reports every run outcome and rejection to o.
func WithObserver(o Observer) Option {
	return func(c *dispatcherConfig) {
		c.observer = o
	}
}
