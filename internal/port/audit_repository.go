package port

import (
	"context"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

type AuditLogger interface {
	// Record appends one entry; never rewrites existing ones
	Record(ctx context.Context, entry domain.AuditEntry) error
}

type AuditReader interface {
	// ReadAll returns every entry in append order; a missing log reads as empty
	ReadAll(ctx context.Context) ([]domain.AuditEntry, error)
}
