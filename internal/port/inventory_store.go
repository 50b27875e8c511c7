package port

import (
	"context"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

// InventoryStore is the operation contract of the record store. Every mutation
// is persisted before it returns.
type InventoryStore interface {
	Load(ctx context.Context) error
	Add(ctx context.Context, record domain.ProductRecord) error
	Delete(ctx context.Context, id string) error
	UpdateStock(ctx context.Context, id string, quantity int) (domain.ProductRecord, error)
	Get(ctx context.Context, id string) (domain.ProductRecord, error)
	List(ctx context.Context) ([]domain.ProductRecord, error)
}
