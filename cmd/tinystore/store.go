package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/tinystore"
	"github.com/jpalmerr/tinystore/config"
	"github.com/jpalmerr/tinystore/internal/counter"
)

// loadConfig reads the file named by --config, honouring --env-file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")

	cfg, err := config.Load(configFile, envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// initActionType seeds every counter slice without touching any counter.
const initActionType = "@@tinystore/init"

// newStore builds the counter store described by cfg. The initial state
// has every counter present at zero.
func newStore(cfg *config.Config, logger *slog.Logger) (*tinystore.Store[map[string]any], error) {
	reducer, err := counter.Combine(cfg.Counters...)
	if err != nil {
		return nil, fmt.Errorf("failed to build reducer: %w", err)
	}

	initial := reducer(nil, tinystore.Action{Type: initActionType})

	store, err := tinystore.New(reducer,
		tinystore.WithLogger(logger),
		tinystore.WithInitialState(initial),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return store, nil
}

// runScript dispatches every action in order and counts the outcomes.
func runScript(store *tinystore.Store[map[string]any], actions []tinystore.Action) (applied, malformed int) {
	for _, action := range actions {
		switch store.Dispatch(action) {
		case tinystore.OutcomeApplied:
			applied++
		case tinystore.OutcomeMalformed:
			malformed++
		}
	}
	return applied, malformed
}
