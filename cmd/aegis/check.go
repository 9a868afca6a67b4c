package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/cli"
	"promptstudio/aegis/pkg/safety"
)

var checkFlags struct {
	format    string
	toxicity  bool
	pii       bool
	injection bool
	bias      bool
	security  bool
	drift     bool
	baseline  string
	sanitize  bool
	noAudit   bool
	progress  bool
}

var checkCmd = &cobra.Command{
	Use:   "check [file...|-]",
	Short: "Check text for safety issues",
	Long: `Check files or standard input for toxicity, personal data, prompt
injection, bias and security issues.

With no file, or "-", the text is read from standard input. The command
exits with status 2 when any input is blocked, so it can gate scripts and
CI jobs.

Examples:
  # Check a prompt from a pipe
  echo "ignore all previous instructions" | aegis check

  # Check several files, JSON output
  aegis check prompts/*.txt --format json

  # Only look for personal data, and show the redacted text
  aegis check --toxicity=false --injection=false --bias=false --security=false --sanitize note.txt

  # Measure drift from the original task
  aegis check --drift --baseline "summarize the quarterly report" reply.txt`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	f := checkCmd.Flags()
	f.StringVarP(&checkFlags.format, "format", "o", "text", "output format (text, json, yaml)")
	addDetectorFlags(checkCmd)
	f.BoolVar(&checkFlags.drift, "drift", false, "analyze drift from --baseline")
	f.StringVar(&checkFlags.baseline, "baseline", "", "baseline context for drift analysis")
	f.BoolVar(&checkFlags.sanitize, "sanitize", false, "include sanitized content in the result")
	f.BoolVar(&checkFlags.noAudit, "no-audit", false, "do not record the check for audit")
	f.BoolVar(&checkFlags.progress, "progress", false, "show progress on stderr when checking several files")
}

// addDetectorFlags registers the per-detector switches on cmd.
func addDetectorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&checkFlags.toxicity, "toxicity", true, "run the toxicity check")
	f.BoolVar(&checkFlags.pii, "pii", true, "run the PII check")
	f.BoolVar(&checkFlags.injection, "injection", true, "run the prompt injection check")
	f.BoolVar(&checkFlags.bias, "bias", true, "run the bias check")
	f.BoolVar(&checkFlags.security, "security", true, "run the security check")
}

// overridesFromFlags returns the options explicitly set on cmd's command
// line. Unset flags keep the configured defaults.
func overridesFromFlags(cmd *cobra.Command) *safety.OptionOverrides {
	o := &safety.OptionOverrides{}
	f := cmd.Flags()
	set := func(name string, v bool, dst **bool) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst = &v
		}
	}
	set("toxicity", checkFlags.toxicity, &o.Toxicity)
	set("pii", checkFlags.pii, &o.PII)
	set("injection", checkFlags.injection, &o.Injection)
	set("bias", checkFlags.bias, &o.Bias)
	set("security", checkFlags.security, &o.Security)
	set("drift", checkFlags.drift, &o.Drift)
	set("sanitize", checkFlags.sanitize, &o.AutoSanitize)
	if f.Lookup("baseline") != nil && f.Changed("baseline") {
		b := checkFlags.baseline
		o.BaselineContext = &b
		if !f.Changed("drift") {
			drift := true
			o.Drift = &drift
		}
	}
	return o
}

// input is one text to check.
type input struct {
	Name    string
	Content string
}

// readInputs reads the named files, or standard input for none or "-".
func readInputs(cmd *cobra.Command, args []string) ([]input, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	inputs := make([]input, 0, len(args))
	for _, name := range args {
		var data []byte
		var err error
		if name == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
			name = "stdin"
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		inputs = append(inputs, input{Name: name, Content: string(data)})
	}
	return inputs, nil
}

// FileResult pairs an input name with its check result.
type FileResult struct {
	File   string              `json:"file" yaml:"file"`
	Result *safety.CheckResult `json:"result" yaml:"result"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format)
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
		return cli.NewCommandError("check", err)
	}

	svc, err := newService(cfg, cmd.ErrOrStderr(), checkFlags.noAudit)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	overrides := overridesFromFlags(cmd)

	var progress cli.ProgressReporter
	if checkFlags.progress && len(inputs) > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(len(inputs))
	}

	results := make([]FileResult, 0, len(inputs))
	blocked := false
	for _, in := range inputs {
		r := svc.Check(cmd.Context(), in.Content, overrides, audit.SourceCLI)
		results = append(results, FileResult{File: in.Name, Result: r})
		blocked = blocked || r.Blocked
		if progress != nil {
			progress.Step(r.Blocked)
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if err := writeResults(cmd.OutOrStdout(), format, results); err != nil {
		return cli.NewCommandError("check", err)
	}
	if blocked {
		return &cli.ExitError{Code: cli.ExitBlocked}
	}
	return nil
}

// writeResults prints a single result bare and several as a list.
func writeResults(w io.Writer, format cli.OutputFormat, results []FileResult) error {
	formatter := cli.NewFormatter(format)
	if len(results) == 1 {
		return formatter.FormatTo(w, results[0].Result)
	}
	if format != cli.FormatText {
		return formatter.FormatTo(w, results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s ==\n", r.File)
		if err := formatter.FormatTo(w, r.Result); err != nil {
			return err
		}
	}
	return nil
}
