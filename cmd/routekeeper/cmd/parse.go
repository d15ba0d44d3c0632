package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/routekeeper/internal/rules"
	"github.com/solatis/routekeeper/internal/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse <expression>",
	Short: "Decompose a gateway expression into conditions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := rules.Decompose(args[0])
		out := struct {
			Conditions []types.Condition `json:"conditions"`
			Skipped    []string          `json:"skipped,omitempty"`
			Partial    bool              `json:"partial"`
		}{d.Conditions, d.Skipped, d.Partial}
		if out.Conditions == nil {
			out.Conditions = []types.Condition{}
		}
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}

		if strict, _ := cmd.Flags().GetBool("strict"); strict && d.Partial {
			return fmt.Errorf("%d clause(s) could not be recovered", len(d.Skipped))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("strict", false, "fail when any clause is skipped")
}
