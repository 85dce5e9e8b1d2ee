package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// replayCmd dispatches the configured script and prints every state.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Dispatch the config script and print each state",
	Long: `Build the store described by the config file, dispatch every action of
its script in order, and print the state after each notification as one
JSON line on stdout. A summary follows the last line.

Actions without a type are dispatched as well: they leave the state
unchanged, are reported on stderr, and still produce a line.

Example:
  tinystore replay -c config.yaml
  tinystore replay -c config.yaml --summary=false`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	replayCmd.Flags().Bool("summary", true, "print a summary after the last state")
	_ = replayCmd.MarkFlagRequired("config")
}

// replayLine is one line of replay output.
type replayLine struct {
	Step  int            `json:"step"`
	State map[string]any `json:"state"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := cfg.Logger(os.Stderr)

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	// the printer is a plain listener; errors are kept for after the run
	var (
		step     int
		writeErr error
	)
	unsubscribe := store.Subscribe(func() {
		step++
		if writeErr != nil {
			return
		}
		writeErr = enc.Encode(replayLine{Step: step, State: store.GetState()})
	})
	defer unsubscribe()

	applied, malformed := runScript(store, cfg.Actions())
	if writeErr != nil {
		return fmt.Errorf("failed to write state: %w", writeErr)
	}

	logger.Debug("replay finished", "applied", applied, "malformed", malformed)

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		final, err := json.Marshal(store.GetState())
		if err != nil {
			return fmt.Errorf("failed to encode final state: %w", err)
		}
		fmt.Fprintf(out, "Replayed %d actions: %d applied, %d malformed\n", applied+malformed, applied, malformed)
		fmt.Fprintf(out, "Final state: %s\n", final)
	}

	return nil
}
