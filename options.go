package tinystore

import (
	"errors"
	"fmt"
	"log/slog"
)

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	logger       *slog.Logger
	initialState any
	middleware   []Middleware
}

// Option is a function that configures a [Store] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New]. Options return an error if
// validation fails.
//
// Built-in options: [WithLogger], [WithInitialState], [WithMiddleware].
type Option func(*storeConfig) error

// WithLogger sets the [slog.Logger] that receives dispatch diagnostics,
// such as malformed actions. If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	store, err := tinystore.New(reducer, tinystore.WithLogger(logger))
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithInitialState preloads the store with state instead of the zero
// value of the state type. The reducer is not called for the preloaded
// value. A nil state leaves the zero value in place.
//
// [New] returns an error if state is not of the store's state type.
func WithInitialState(state any) Option {
	return func(cfg *storeConfig) error {
		cfg.initialState = state
		return nil
	}
}

// WithMiddleware installs middleware around [Store.Dispatch].
//
// The first middleware sees each action first. Repeated WithMiddleware
// options append to the chain in the order given.
//
// Example:
//
//	store, err := tinystore.New(reducer,
//	    tinystore.WithMiddleware(tinystore.ThunkMiddleware, audit),
//	)
//
// Returns an error if any middleware is nil.
func WithMiddleware(mws ...Middleware) Option {
	return func(cfg *storeConfig) error {
		for i, mw := range mws {
			if mw == nil {
				return fmt.Errorf("middleware[%d] cannot be nil", i)
			}
		}
		cfg.middleware = append(cfg.middleware, mws...)
		return nil
	}
}
