package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var rootConfigPath string
var verbose bool

var rootCmd = cobra.Command{
	Use:           "worklog",
	Short:         "Render time-tracking logs into reports using text templates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose || verboseEnabled())
	},
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// verboseEnabled reports whether WORKLOG_VERBOSE asks for debug output.
func verboseEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("WORKLOG_VERBOSE"))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to worklog configuration file (default $WORKLOG_CONFIG or worklog.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(&validateCmd)
	rootCmd.AddCommand(&templatesCmd)
	treeCmd.Flags().Bool("paths", false, "Print the referenced paths instead of the tree")
	rootCmd.AddCommand(&treeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
