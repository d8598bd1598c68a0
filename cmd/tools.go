package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edaforge/vivactl/internal/display"
	"github.com/edaforge/vivactl/internal/tools"
)

func newToolsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Long:  "List every tool the serve loop accepts, grouped by category. With --json, includes the JSON schema of each tool's arguments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := tools.NewRegistry()
			ts := reg.Tools()

			if jsonOutput {
				data, err := json.MarshalIndent(ts, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling tools: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			display.PrintToolsTable(ts, cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with argument schemas")

	return cmd
}
