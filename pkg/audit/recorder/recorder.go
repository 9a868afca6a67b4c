// Package recorder turns safety check results into audit records and writes
// them to storage from a background worker.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/telemetry/logging"
)

// Recorder queues audit records and writes them asynchronously so checks
// never wait on storage. It is safe for concurrent use.
type Recorder struct {
	storage audit.Storage
	config  config.RecorderConfig
	onDrop  func()
	records chan *audit.Record
	done    chan struct{}

	// mu orders sends against Close so nothing is queued after the drain.
	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	once   sync.Once
	logger *slog.Logger
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithDropHandler registers fn to be called for every record that could
// not be queued.
func WithDropHandler(fn func()) Option {
	return func(r *Recorder) {
		r.onDrop = fn
	}
}

// New creates a recorder writing to storage and starts its worker.
func New(storage audit.Storage, cfg config.RecorderConfig, opts ...Option) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultAuditRecorderAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultAuditRecorderWriteTimeout
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		records: make(chan *audit.Record, cfg.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("audit recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// NewRecord builds the audit record for result. The content is hashed and
// measured but not kept. The request id is taken from ctx.
func NewRecord(ctx context.Context, result *safety.CheckResult, content string, source audit.Source) *audit.Record {
	record := &audit.Record{
		ID:            uuid.New().String(),
		CheckID:       result.CheckID,
		RequestID:     logging.GetRequestID(ctx),
		Source:        source,
		Timestamp:     time.Now().UTC(),
		ContentHash:   HashContent(content),
		ContentLength: len(content),
		Score:         result.Score,
		Passed:        result.Passed,
		Blocked:       result.Blocked,
		RiskLevel:     result.RiskLevel,
		IssueCount:    len(result.Issues),
		Truncated:     result.Truncated,
		Sanitized:     result.SanitizedContent != nil,
		DurationMs:    result.ProcessingTimeMs,
	}

	if len(result.Issues) > 0 {
		record.IssueTypes = make(map[string]int)
		record.Severities = make(map[string]int)
		record.IssueIDs = make([]string, 0, len(result.Issues))
		for _, is := range result.Issues {
			record.IssueTypes[string(is.Type)]++
			record.Severities[is.Severity.String()]++
			record.IssueIDs = append(record.IssueIDs, is.ID)
		}
	}
	for _, c := range result.ChecksPerformed {
		record.ChecksPerformed = append(record.ChecksPerformed, string(c))
	}
	return record
}

// Record queues an audit record for result and returns it. It never blocks:
// when the queue is full the record is dropped and ErrBufferFull returned.
func (r *Recorder) Record(ctx context.Context, result *safety.CheckResult, content string, source audit.Source) (*audit.Record, error) {
	record := NewRecord(ctx, result, content, source)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, audit.NewRecorderError(record.ID, audit.ErrRecorderClosed)
	}

	select {
	case r.records <- record:
		return record, nil
	default:
		r.logger.WarnContext(ctx, "audit queue full, dropping record",
			"record_id", record.ID,
			"check_id", record.CheckID,
			"capacity", r.config.AsyncBuffer,
		)
		if r.onDrop != nil {
			r.onDrop()
		}
		return nil, audit.NewRecorderError(record.ID, audit.ErrBufferFull)
	}
}

// Pending returns the number of queued records not yet written.
func (r *Recorder) Pending() int {
	return len(r.records)
}

// Close stops accepting records and waits until queued records are written.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.done)
		r.mu.Unlock()

		r.wg.Wait()
		r.logger.Debug("audit recorder shut down")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.records:
			r.write(record)

		case <-r.done:
			for {
				select {
				case record := <-r.records:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"check_id", record.CheckID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
