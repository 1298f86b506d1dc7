package main

import (
	"fmt"
	"io"
	"os"

	"ewintr.nl/uploadwatch/config"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	flagConfigPath string
	flagKeysPath   string
	flagVerbose    bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "uploadwatch",
		Short:         "Post new YouTube uploads to reddit",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", config.DefaultConfigPath, "config file path")
	cmd.PersistentFlags().StringVar(&flagKeysPath, "keys", "", "keys file path, overrides keys_file")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// loadSettings resolves config file, environment and flags, then reads the
// keys file the result points to.
func loadSettings() (config.Settings, config.Keys, error) {
	cfg, err := config.LoadOrDefault(flagConfigPath)
	if err != nil {
		return config.Settings{}, config.Keys{}, fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv()
	if flagKeysPath != "" {
		cfg.KeysFile = flagKeysPath
	}

	settings, err := cfg.Settings()
	if err != nil {
		return config.Settings{}, config.Keys{}, fmt.Errorf("invalid config: %w", err)
	}

	keys, err := config.LoadKeys(settings.KeysFile)
	if err != nil {
		return config.Settings{}, config.Keys{}, err
	}

	return settings, keys, nil
}

// newLogger writes text to a terminal and JSON everywhere else.
func newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if flagVerbose {
		opts.Level = slog.LevelDebug
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}
