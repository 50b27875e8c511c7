package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/port"
)

var permissions = map[domain.Role]map[domain.Operation]bool{
	domain.RoleAdmin: {
		domain.OpAdd:           true,
		domain.OpDelete:        true,
		domain.OpGet:           true,
		domain.OpList:          true,
		domain.OpUpdateStock:   true,
		domain.OpViewLog:       true,
		domain.OpTotalValue:    true,
		domain.OpLowStockAlert: true,
	},
	domain.RoleStaff: {
		domain.OpGet:         true,
		domain.OpList:        true,
		domain.OpUpdateStock: true,
	},
}

// Authorize reports whether role may perform op.
func Authorize(role domain.Role, op domain.Operation) bool {
	return permissions[role][op]
}

// AuditFailurePolicy decides what happens to an applied stock change whose
// audit entry could not be written.
type AuditFailurePolicy string

const (
	// AuditFailureWarn keeps the change and reports ErrLogWrite alongside the record.
	AuditFailureWarn AuditFailurePolicy = "warn"
	// AuditFailureRevert restores the previous quantity and reports the update as failed.
	AuditFailureRevert AuditFailurePolicy = "revert"
)

type GateOption func(*Gate)

func WithAuditReader(r port.AuditReader) GateOption {
	return func(g *Gate) { g.auditReader = r }
}

func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

func WithAuditFailurePolicy(p AuditFailurePolicy) GateOption {
	return func(g *Gate) { g.auditPolicy = p }
}

// Gate is the single entry point for collaborators. It checks permissions
// before touching the store and couples stock updates with the audit log.
type Gate struct {
	store       port.InventoryStore
	audit       port.AuditLogger
	auditReader port.AuditReader
	auditPolicy AuditFailurePolicy
	now         func() time.Time
	logger      *zap.Logger
}

func NewGate(store port.InventoryStore, audit port.AuditLogger, logger *zap.Logger, opts ...GateOption) *Gate {
	g := &Gate{
		store:       store,
		audit:       audit,
		auditPolicy: AuditFailureWarn,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) authorize(role domain.Role, op domain.Operation) error {
	if Authorize(role, op) {
		return nil
	}
	g.logger.Warn("operation denied",
		zap.Stringer("role", role),
		zap.String("operation", string(op)),
	)
	return fmt.Errorf("%w: %s may not %s", domain.ErrPermissionDenied, role, op)
}

func (g *Gate) Add(ctx context.Context, role domain.Role, record domain.ProductRecord) error {
	if err := g.authorize(role, domain.OpAdd); err != nil {
		return err
	}
	return g.store.Add(ctx, record)
}

func (g *Gate) Delete(ctx context.Context, role domain.Role, id string) error {
	if err := g.authorize(role, domain.OpDelete); err != nil {
		return err
	}
	return g.store.Delete(ctx, id)
}

func (g *Gate) Get(ctx context.Context, role domain.Role, id string) (domain.ProductRecord, error) {
	if err := g.authorize(role, domain.OpGet); err != nil {
		return domain.ProductRecord{}, err
	}
	return g.store.Get(ctx, id)
}

func (g *Gate) List(ctx context.Context, role domain.Role) ([]domain.ProductRecord, error) {
	if err := g.authorize(role, domain.OpList); err != nil {
		return nil, err
	}
	return g.store.List(ctx)
}

// UpdateStock sets the quantity and records exactly one audit entry for it.
//
// With the warn policy an audit failure returns the updated record together
// with an error wrapping ErrLogWrite. With the revert policy the previous
// quantity is restored and no record is returned.
func (g *Gate) UpdateStock(ctx context.Context, role domain.Role, id string, quantity int) (domain.ProductRecord, error) {
	if err := g.authorize(role, domain.OpUpdateStock); err != nil {
		return domain.ProductRecord{}, err
	}

	prev, err := g.store.Get(ctx, id)
	if err != nil {
		return domain.ProductRecord{}, err
	}

	updated, err := g.store.UpdateStock(ctx, id, quantity)
	if err != nil {
		return domain.ProductRecord{}, err
	}

	entry := domain.AuditEntry{
		Timestamp:   g.now(),
		ProductID:   updated.ID,
		NewQuantity: updated.Quantity,
		ActorRole:   role,
	}
	auditErr := g.audit.Record(ctx, entry)
	if auditErr == nil {
		return updated, nil
	}

	if !errors.Is(auditErr, domain.ErrLogWrite) {
		auditErr = fmt.Errorf("%w: %w", domain.ErrLogWrite, auditErr)
	}

	if g.auditPolicy != AuditFailureRevert {
		g.logger.Warn("stock updated without audit entry",
			zap.String("product_id", id),
			zap.Int("new_quantity", quantity),
			zap.Error(auditErr),
		)
		return updated, auditErr
	}

	if _, revertErr := g.store.UpdateStock(ctx, id, prev.Quantity); revertErr != nil {
		g.logger.Error("revert after audit failure failed",
			zap.String("product_id", id),
			zap.Error(revertErr),
		)
		return domain.ProductRecord{}, errors.Join(auditErr, fmt.Errorf("revert stock: %w", revertErr))
	}

	g.logger.Warn("stock update reverted after audit failure",
		zap.String("product_id", id),
		zap.Error(auditErr),
	)
	return domain.ProductRecord{}, auditErr
}

func (g *Gate) TotalValue(ctx context.Context, role domain.Role) (decimal.Decimal, error) {
	if err := g.authorize(role, domain.OpTotalValue); err != nil {
		return decimal.Zero, err
	}
	records, err := g.store.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return TotalValue(records), nil
}

func (g *Gate) LowStockAlert(ctx context.Context, role domain.Role, threshold int) ([]domain.ProductRecord, error) {
	if err := g.authorize(role, domain.OpLowStockAlert); err != nil {
		return nil, err
	}
	records, err := g.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return LowStockAlert(records, threshold), nil
}

// ViewLog returns the audit trail; empty when no reader is configured.
func (g *Gate) ViewLog(ctx context.Context, role domain.Role) ([]domain.AuditEntry, error) {
	if err := g.authorize(role, domain.OpViewLog); err != nil {
		return nil, err
	}
	if g.auditReader == nil {
		return []domain.AuditEntry{}, nil
	}
	entries, err := g.auditReader.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}
