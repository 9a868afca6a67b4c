package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/cli"
	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/service"
)

// ConfigEnv names the config file when --config is not given.
const ConfigEnv = "AEGIS_CONFIG"

var (
	// Global flags
	cfgFile  string
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Aegis - content safety and sanitization for LLM traffic",
	Long: `Aegis checks prompts and model output for toxicity, personal data,
prompt injection, bias and security issues before they reach a model or a
user.

Each check returns a 0-100 safety score, the issues found with their
locations, and whether the content passes or is blocked. Personal data and
secrets can be redacted automatically. Checks are recorded for audit
without storing the content itself.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	var ee *cli.ExitError
	if err != nil && !errors.As(err, &ee) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $"+ConfigEnv+" or built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig loads the configuration named by the flags and installs it as
// the process-wide configuration.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError(path, err.Error())
	}

	switch {
	case logLevel != "":
		cfg.Telemetry.Logging.Level = logLevel
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	}

	config.SetConfig(cfg)
	return cfg, nil
}

// quietLogs lowers one-shot commands to warnings unless a level was asked
// for, so results are not buried in startup logs.
func quietLogs(cfg *config.Config) {
	if logLevel == "" && !verbose {
		cfg.Telemetry.Logging.Level = "warn"
	}
}

// newService builds the safety service, logging to w.
func newService(cfg *config.Config, w io.Writer, disableAudit bool) (*service.Service, error) {
	info := versionInfo()
	svc, err := service.New(cfg, info, service.Options{
		LogWriter:    w,
		DisableAudit: disableAudit,
	})
	if err != nil {
		return nil, cli.NewCommandError("init", err)
	}
	return svc, nil
}
