package port

import (
	"context"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

type SnapshotRepository interface {
	// Load returns all records in stored order; no prior state yields an empty slice
	Load(ctx context.Context) ([]domain.ProductRecord, error)

	// Save replaces the durable state with records, in order
	Save(ctx context.Context, records []domain.ProductRecord) error
}
