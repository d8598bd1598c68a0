package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/edaforge/vivactl/internal/display"
	"github.com/edaforge/vivactl/internal/envelope"
)

func newRunCmd() *cobra.Command {
	var (
		timeoutSec int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "run <tcl-command>",
		Short: "Start an engine session, run one TCL command, and exit",
		Long: "Spawns the engine, waits for the prompt, executes the given TCL command, " +
			"prints the framed output, and shuts the engine down. Useful for smoke tests; " +
			"for repeated commands use serve, which keeps the session alive.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt := newRuntime(cfg)

			if _, err := rt.Engine.Start(); err != nil {
				return fmt.Errorf("starting engine session: %w", err)
			}
			defer func() {
				if err := rt.Engine.Stop(); err != nil {
					logrus.WithError(err).Warn("stopping engine session")
				}
			}()

			timeout := time.Duration(cfg.Engine.CommandTimeoutSec) * time.Second
			if timeoutSec > 0 {
				timeout = time.Duration(timeoutSec) * time.Second
			}
			tx, execErr := rt.Engine.ExecuteTimeout(args[0], timeout)
			if execErr != nil {
				return fmt.Errorf("executing command: %w", execErr)
			}

			if jsonOutput {
				env := envelope.Wrap(tx.Output, cfg.Response.MaxChars)
				out := map[string]any{
					"command":    tx.Command,
					"completion": tx.Completion,
					"elapsed_s":  tx.Elapsed.Seconds(),
					"output":     env,
				}
				if len(tx.Errors) > 0 {
					out["errors"] = tx.Errors
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling result: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			display.PrintTransaction(tx, cfg.Engine.Prompt, cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Idle timeout in seconds for this command (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
