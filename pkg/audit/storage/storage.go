// Package storage provides the audit record backends: SQLite for durable
// storage and memory for tests and ephemeral deployments.
package storage

import (
	"fmt"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/config"
)

// New creates the backend selected by cfg.Backend.
func New(cfg config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "sqlite", "":
		return NewSQLiteStorage(cfg.SQLite)
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, audit.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown backend %q", cfg.Backend))
	}
}
