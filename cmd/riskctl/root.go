package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/monitoring"
)

var version = "dev"

type rootOptions struct {
	verbose bool
	logger  *monitoring.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "riskctl",
		Short: "Score voice samples and inspect risk model artifacts offline",
		Long: `riskctl runs the acoustic-cognitive risk engine without the HTTP service.

It scores extracted voice features against an optional baseline and cognitive
score, and inspects or re-encodes classifier artifacts.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if opts.verbose {
			level = slog.LevelDebug
		}
		opts.logger = monitoring.NewCLILogger(cmd.ErrOrStderr(), level)
	}

	cmd.AddCommand(newScoreCommand(opts))
	cmd.AddCommand(newModelCommand(opts))

	return cmd
}

// log returns the command logger, or a discarding one when PersistentPreRun
// did not run.
func (o *rootOptions) log() *monitoring.Logger {
	if o.logger == nil {
		o.logger = monitoring.NewCLILogger(io.Discard, slog.LevelError)
	}
	return o.logger
}

func readFeatures(path string) (acoustic.FeatureInput, error) {
	var in acoustic.FeatureInput

	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read features: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("decode features %s: %w", path, err)
	}
	return in, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
