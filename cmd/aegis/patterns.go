package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/cli"
	"promptstudio/aegis/pkg/safety/patterns"
)

var patternsFlags struct {
	format   string
	category string
	file     string
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and validate detection patterns",
	Long: `Inspect the active detection patterns and validate pattern packs.

Pattern packs are YAML files that add, override or disable patterns on top
of the built-in tables. Point patterns.file in the config at a pack file or
a directory of packs.`,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active patterns",
	Long: `List the patterns the engine would use with the current configuration.

Examples:
  aegis patterns list
  aegis patterns list --category pii
  aegis patterns list --file ./packs --format yaml`,
	Args: cobra.NoArgs,
	RunE: runPatternsList,
}

var patternsValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate pattern pack files",
	Long: `Parse and compile pattern packs without starting anything.

Every argument is loaded on top of the built-in patterns and reported on
its own. The command fails if any pack is invalid.

Examples:
  aegis patterns validate packs/company.yaml
  aegis patterns validate packs/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPatternsValidate,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsValidateCmd)

	f := patternsListCmd.Flags()
	f.StringVarP(&patternsFlags.format, "format", "o", "text", "output format (text, json, yaml)")
	f.StringVar(&patternsFlags.category, "category", "", "only list this category")
	f.StringVar(&patternsFlags.file, "file", "", "pattern pack file or directory (overrides config)")
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(patternsFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("csv output is only available for audit query")
	}

	category := patterns.Category(patternsFlags.category)
	if category != "" && !category.Valid() {
		return fmt.Errorf("unknown category %q", patternsFlags.category)
	}

	path := patternsFlags.file
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Patterns.File
	}

	reg, err := patterns.Load(path)
	if err != nil {
		return cli.NewCommandError("patterns list", err)
	}

	sums := reg.Summaries()
	if category != "" {
		filtered := sums[:0]
		for _, s := range sums {
			if s.Category == category {
				filtered = append(filtered, s)
			}
		}
		sums = filtered
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), sums)
}

func runPatternsValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		reg, err := patterns.Load(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "✓ %s: %d patterns active\n", path, reg.Len())
	}
	if failed > 0 {
		return cli.NewCommandError("patterns validate", fmt.Errorf("%d of %d pattern sources invalid", failed, len(args)))
	}
	return nil
}
