package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/audit/retention"
	"promptstudio/aegis/pkg/audit/storage"
	"promptstudio/aegis/pkg/cli"
	"promptstudio/aegis/pkg/config"
)

var auditFlags struct {
	since     time.Duration
	start     string
	end       string
	checkID   string
	requestID string
	source    string
	risk      string
	blocked   bool
	minScore  int
	maxScore  int
	limit     int
	offset    int
	order     string
	format    string
	output    string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and prune the audit store",
	Long: `Query and prune recorded safety checks.

Audit records hold the outcome of each check (score, verdict, issue
counts and ids) and a SHA-256 hash of the content, never the content
itself.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with filters, newest first.

Time filters accept RFC3339 timestamps; --since is relative to now.

Examples:
  # Blocked checks in the last day
  aegis audit query --blocked --since 24h

  # Everything for one request
  aegis audit query --request-id 3f0c9a52-...

  # Export low-scoring checks from the MCP surface
  aegis audit query --source mcp --max-score 50 --format csv --output low.csv`,
	Args: cobra.NoArgs,
	RunE: runAuditQuery,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete audit records older than audit.retention.days and, when
audit.retention.max_records is set, the oldest records beyond that count.`,
	Args: cobra.NoArgs,
	RunE: runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditPruneCmd)

	f := auditQueryCmd.Flags()
	f.DurationVar(&auditFlags.since, "since", 0, "only records newer than this duration (e.g. 30m, 24h)")
	f.StringVar(&auditFlags.start, "start", "", "only records at or after this RFC3339 time")
	f.StringVar(&auditFlags.end, "end", "", "only records at or before this RFC3339 time")
	f.StringVar(&auditFlags.checkID, "check-id", "", "filter by check ID")
	f.StringVar(&auditFlags.requestID, "request-id", "", "filter by request ID")
	f.StringVar(&auditFlags.source, "source", "", "filter by source (api, mcp, cli)")
	f.StringVar(&auditFlags.risk, "risk", "", "filter by risk level (none, info, low, medium, high, critical)")
	f.BoolVar(&auditFlags.blocked, "blocked", false, "filter by blocked verdict (--blocked=false for unblocked)")
	f.IntVar(&auditFlags.minScore, "min-score", 0, "minimum score")
	f.IntVar(&auditFlags.maxScore, "max-score", 100, "maximum score")
	f.IntVar(&auditFlags.limit, "limit", 0, "maximum records (default audit.query.default_limit)")
	f.IntVar(&auditFlags.offset, "offset", 0, "records to skip")
	f.StringVar(&auditFlags.order, "order", "desc", "sort order by time (asc, desc)")
	f.StringVarP(&auditFlags.format, "format", "o", "text", "output format (text, json, yaml, csv)")
	f.StringVar(&auditFlags.output, "output", "", "write to this file instead of stdout")
}

// buildQuery turns the query flags into a validated audit query.
func buildQuery(cmd *cobra.Command, qc config.QueryConfig, now time.Time) (*audit.Query, error) {
	f := cmd.Flags()
	q := &audit.Query{
		CheckID:   auditFlags.checkID,
		RequestID: auditFlags.requestID,
		Source:    audit.Source(auditFlags.source),
		RiskLevel: auditFlags.risk,
		Limit:     auditFlags.limit,
		Offset:    auditFlags.offset,
		SortOrder: auditFlags.order,
	}

	parseTime := func(name, v string) (*time.Time, error) {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", name, err)
		}
		return &t, nil
	}
	if auditFlags.start != "" {
		t, err := parseTime("start", auditFlags.start)
		if err != nil {
			return nil, err
		}
		q.StartTime = t
	}
	if auditFlags.since > 0 {
		t := now.Add(-auditFlags.since)
		if q.StartTime == nil || t.After(*q.StartTime) {
			q.StartTime = &t
		}
	}
	if auditFlags.end != "" {
		t, err := parseTime("end", auditFlags.end)
		if err != nil {
			return nil, err
		}
		q.EndTime = t
	}

	if f.Changed("blocked") {
		b := auditFlags.blocked
		q.Blocked = &b
	}
	if f.Changed("min-score") {
		v := auditFlags.minScore
		q.MinScore = &v
	}
	if f.Changed("max-score") {
		v := auditFlags.maxScore
		q.MaxScore = &v
	}

	if err := q.Validate(qc.DefaultLimit, qc.MaxLimit); err != nil {
		return nil, err
	}
	return q, nil
}

// openAudit opens the configured audit store.
func openAudit(cfg *config.Config) (audit.Storage, error) {
	if !cfg.Audit.Enabled {
		return nil, cli.NewConfigError("audit.enabled", "audit is disabled")
	}
	if cfg.Audit.Backend == "memory" {
		return nil, cli.NewConfigError("audit.backend", "the memory backend does not persist between commands")
	}
	store, err := storage.New(cfg.Audit)
	if err != nil {
		return nil, cli.NewCommandError("audit", err)
	}
	return store, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	query, err := buildQuery(cmd, cfg.Audit.Query, time.Now())
	if err != nil {
		return err
	}

	store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	w := cmd.OutOrStdout()
	if auditFlags.output != "" {
		file, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		defer file.Close()
		w = file
	}
	if err := cli.NewFormatter(format).FormatTo(w, records); err != nil {
		return cli.NewCommandError("audit query", err)
	}
	if auditFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d records to %s\n", len(records), auditFlags.output)
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	deleted, err := retention.NewPruner(store, cfg.Audit.Retention).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	remaining, err := store.Count(ctx, &audit.Query{})
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	return cli.NewFormatter(cli.FormatText).FormatTo(cmd.OutOrStdout(), &cli.PruneReport{
		Deleted:   deleted,
		Remaining: remaining,
	})
}
