// Package retention enforces the audit retention policy: records older than
// the configured number of days are deleted, then the oldest records beyond
// the configured maximum count.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/config"
)

// Pruner deletes audit records according to a retention policy.
type Pruner struct {
	storage   audit.Storage
	config    config.RetentionConfig
	now       func() time.Time
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a pruner for storage.
func NewPruner(storage audit.Storage, cfg config.RetentionConfig) *Pruner {
	p := &Pruner{
		storage: storage,
		config:  cfg,
		now:     time.Now,
		logger:  slog.Default().With("component", "audit.retention"),
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune runs both retention phases and returns the total number of records
// deleted. Age-based pruning runs first, so the count phase only sees
// records that are still within the retention period.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, err
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, err
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("audit pruning completed",
			"deleted_count", total,
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Debug("no audit records pruned")
	}
	return total, nil
}

// pruneByAge deletes records older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.Days)

	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.Days, err)
	}
	return deleted, nil
}

// pruneByCount deletes the oldest records when the total exceeds
// MaxRecords. Records sharing the cutoff timestamp are deleted together.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.Days, fmt.Errorf("count records: %w", err))
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	excess := count - p.config.MaxRecords
	oldest, err := p.storage.Query(ctx, &audit.Query{
		SortOrder: "asc",
		Limit:     int(excess),
	})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.Days, fmt.Errorf("query oldest records: %w", err))
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].Timestamp
	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.Days, fmt.Errorf("delete oldest records: %w", err))
	}

	p.logger.Debug("pruned audit records by count",
		"count", count,
		"max_records", p.config.MaxRecords,
		"deleted_count", deleted,
	)
	return deleted, nil
}

// Start starts scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil when
// the scheduler is not running.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
