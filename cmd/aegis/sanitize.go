package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/cli"
)

var sanitizeFlags struct {
	format  string
	output  string
	noAudit bool
}

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [file|-]",
	Short: "Redact personal data and secrets from text",
	Long: `Check a file or standard input with sanitization forced on and print
the sanitized text.

Personal data and secrets are replaced with labels such as
[EMAIL_REDACTED]. Text with nothing to fix is printed unchanged. Use
--format json or yaml to get the full check result as well.

Examples:
  aegis sanitize prompt.txt > prompt.clean.txt
  cat transcript.txt | aegis sanitize --format json
  aegis sanitize notes.md --output notes.clean.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSanitize,
}

func init() {
	rootCmd.AddCommand(sanitizeCmd)

	f := sanitizeCmd.Flags()
	f.StringVarP(&sanitizeFlags.format, "format", "o", "text", "output format (text, json, yaml)")
	f.StringVar(&sanitizeFlags.output, "output", "", "write the sanitized text to this file instead of stdout")
	f.BoolVar(&sanitizeFlags.noAudit, "no-audit", false, "do not record the check for audit")
	addDetectorFlags(sanitizeCmd)
}

func runSanitize(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(sanitizeFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("csv output is only available for audit query")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	quietLogs(cfg)

	inputs, err := readInputs(cmd, args)
	if err != nil {
		return cli.NewCommandError("sanitize", err)
	}
	in := inputs[0]

	svc, err := newService(cfg, cmd.ErrOrStderr(), sanitizeFlags.noAudit)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	sanitized, result := svc.Sanitize(cmd.Context(), in.Content, overridesFromFlags(cmd), audit.SourceCLI)
	report := &cli.SanitizeReport{
		SanitizedContent: sanitized,
		Changed:          sanitized != in.Content,
		Result:           result,
	}

	if sanitizeFlags.output != "" {
		if err := os.WriteFile(sanitizeFlags.output, []byte(sanitized), 0o644); err != nil {
			return cli.NewCommandError("sanitize", err)
		}
		if format == cli.FormatText {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s (changed: %t)\n", sanitizeFlags.output, report.Changed)
			return nil
		}
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
}
