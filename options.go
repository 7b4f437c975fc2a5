package suit

import (
	"context"

	"go.uber.org/zap"
)

// Option configures New.
type Option func(*options)

type options struct {
	ctx          context.Context
	registry     *Registry
	logger       *zap.Logger
	adoptNewKeys bool
}

func defaultOptions() *options {
	return &options{
		ctx:      context.Background(),
		registry: NewRegistry(),
		logger:   zap.NewNop(),
	}
}

// WithRegistry shares an existing registry with the runtime.
// Defaults to a fresh empty registry.
func WithRegistry(reg *Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.registry = reg
		}
	}
}

// WithLogger sets the runtime logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithContext sets the context used for refreshes the runtime triggers on
// its own, such as auto-refresh after an environment change.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithAdoptNewKeys makes the environment store merge result keys it did not
// hold before and report them as changed. By default such keys are ignored.
func WithAdoptNewKeys(adopt bool) Option {
	return func(o *options) {
		o.adoptNewKeys = adopt
	}
}

// WithConfig applies the runtime settings of cfg.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		o.adoptNewKeys = cfg.AdoptNewKeys
	}
}
