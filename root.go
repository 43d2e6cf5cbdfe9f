package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/drivemapper/drivemapper/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagSource     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
	flagDryRun     bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Resolved

// httpClientTimeout bounds every HTTP request the agent makes (token
// endpoint, group query, desired-state download, vendor page).
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds the fully-assembled root command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drivemapper",
		Short:   "Cloud drive mapping agent",
		Long: "drivemapper reconciles declared network-drive mappings against the\n" +
			"current user's directory group memberships: mount what the user is\n" +
			"entitled to, remove what they no longer are, repair what is stale.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagSource, "source", "", "desired-state file path or URL")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newGroupsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newSetupCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores it in resolvedCfg for use by subcommands.
func loadConfig() error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		SourcePath: flagSource,
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates the run's slog.Logger. Config provides the baseline
// level; --verbose and --quiet override it because CLI flags always win.
// When a transcript file is configured, log records are duplicated into a
// rotating file so support can read past runs off the endpoint.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr

	if resolvedCfg != nil && resolvedCfg.Logging.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   resolvedCfg.Logging.File,
			MaxSize:    resolvedCfg.Logging.MaxSizeMB,
			MaxBackups: resolvedCfg.Logging.MaxBackups,
		})
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
