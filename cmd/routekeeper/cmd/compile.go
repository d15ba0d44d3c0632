package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/routekeeper/internal/core/config"
	"github.com/solatis/routekeeper/internal/outcome"
	"github.com/solatis/routekeeper/internal/types"
)

var compileCmd = &cobra.Command{
	Use:   "compile <ruleset.json>",
	Short: "Validate a rule set and print its gateway export",
	Long: `Reads a rule set ({"conditions": [...], "defaultTarget": "..."}) from a
file, or from stdin when the path is "-", validates it against the variable
catalog and prints one flow expression per rule.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().String("outcomes", "", "outcome config JSON whose decision values extend the catalog")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	engine, err := loadEngine(cfg.Catalog)
	if err != nil {
		return err
	}

	var set types.RuleSet
	if err := readJSON(cmd, args[0], &set); err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("outcomes"); path != "" {
		var outcomes types.OutcomeConfig
		if err := readJSON(cmd, path, &outcomes); err != nil {
			return err
		}
		engine = engine.WithVariables(outcome.DecisionVariable(outcomes))
	}

	export, err := engine.Export(set)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), export)
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
