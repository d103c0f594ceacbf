package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootDir  string
	logLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "dataset root directory (holds registry.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

var rootCmd = &cobra.Command{
	Use:   "scenedex",
	Short: "Scenedex: scene indexing and playback for heterogeneous V2X logs",
	Long: `Scenedex indexes local trajectory and perception datasets into
addressable scenes. Raw roadside logs are windowed into scene candidates by
time gaps and duration caps; datasets with declared scene metadata are
served as-is. Both are exposed through the same catalog surface.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
