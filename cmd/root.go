// Package cmd implements the vivactl command line interface.
package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/edaforge/vivactl/config"
	"github.com/edaforge/vivactl/internal/engine"
	"github.com/edaforge/vivactl/internal/envelope"
	"github.com/edaforge/vivactl/internal/tools"
)

var (
	configPath string
	logLevel   string
)

// NewRootCmd creates the root command for vivactl.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vivactl",
		Short:         "Session manager for an interactive Vivado TCL process",
		Long:          "vivactl keeps a single Vivado process alive across commands and exposes its TCL console as a set of structured tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.vivactl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig reads the config file and applies CLI overrides, including the
// logrus level.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)
	return cfg, nil
}

// newRuntime builds the session, report store and tool runtime from config.
// The session is not started; the start_session tool or the caller does that.
func newRuntime(cfg config.Config) *tools.Runtime {
	sess := engine.NewSession(engine.Options{
		Executable:     cfg.Engine.Executable,
		Args:           cfg.Engine.Args,
		Prompt:         cfg.Engine.Prompt,
		StartupTimeout: time.Duration(cfg.Engine.StartupTimeoutSec) * time.Second,
		CommandTimeout: time.Duration(cfg.Engine.CommandTimeoutSec) * time.Second,
	})
	store := envelope.NewStore(cfg.Response.ReportsDir,
		time.Duration(cfg.Response.ReportMaxAgeHours)*time.Hour)
	return tools.NewRuntime(sess, store, cfg.Response.MaxChars)
}
