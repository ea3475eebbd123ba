package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"retint/internal/config"
	"retint/internal/tui"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "RETINT_LOG_LEVEL"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "retint",
	Short: "retint - recolor or replace the textures inside a zip archive",
	Long: "retint rotates hue, scales saturation and brightness, or swaps whole textures for the images\n" +
		"selected inside a zip archive, and writes a new archive with every other entry copied byte for byte.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.RenderError(err.Error()))
		os.Exit(1)
	}
}

// newLogger writes structured logs to stderr. Output is kept at warnings
// unless --verbose or RETINT_LOG_LEVEL asks for more.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if env := strings.TrimSpace(os.Getenv(LogLevelEnv)); env != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(env)); err == nil {
			level = parsed
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML profile (default $"+config.EnvVar+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
}
