package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/cli"
	"promptstudio/aegis/pkg/telemetry/health"
)

// Build metadata, overridden with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionFlags struct {
	short  bool
	format string
}

// versionReport is the version command's structured output.
type versionReport struct {
	health.VersionInfo `yaml:",inline"`
	Platform           string `json:"platform" yaml:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the aegis build",
	Long: `Show the version, commit and build date of this binary.

Binaries built without -ldflags report the VCS revision stamped by the Go
toolchain, when there is one.

Examples:
  aegis version
  aegis version --short
  aegis version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	f := versionCmd.Flags()
	f.BoolVar(&versionFlags.short, "short", false, "print only the version number")
	f.StringVarP(&versionFlags.format, "format", "o", "text", "output format (text, json, yaml)")
}

// versionInfo describes this binary for the CLI and the /version endpoint.
func versionInfo() health.VersionInfo {
	commit := GitCommit
	if commit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
				}
			}
		}
	}
	return health.NewVersionInfo(Version, commit, BuildDate)
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if versionFlags.short {
		_, err := fmt.Fprintln(out, Version)
		return err
	}

	format, err := cli.ParseFormat(versionFlags.format)
	if err != nil {
		return err
	}
	report := versionReport{
		VersionInfo: versionInfo(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
	}

	switch format {
	case cli.FormatText:
		_, err = fmt.Fprintf(out, "Aegis %s\n  commit:   %s\n  built:    %s\n  go:       %s\n  platform: %s\n",
			report.Version, report.Commit, report.BuildTime, report.GoVersion, report.Platform)
		return err
	case cli.FormatCSV:
		return fmt.Errorf("csv output is only available for audit query")
	default:
		return cli.NewFormatter(format).FormatTo(out, report)
	}
}
