package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/port"
)

// RecordStore keeps the inventory in memory and writes the full state through
// to the snapshot repository after every mutation.
type RecordStore struct {
	mu      sync.Mutex
	repo    port.SnapshotRepository
	logger  *zap.Logger
	records map[string]domain.ProductRecord
	order   []string
}

var _ port.InventoryStore = (*RecordStore)(nil)

func NewRecordStore(repo port.SnapshotRepository, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		repo:    repo,
		logger:  logger,
		records: make(map[string]domain.ProductRecord),
	}
}

// Load replaces the in-memory state with the durable one. The current state is
// kept if the stored one is unreadable.
func (s *RecordStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	records := make(map[string]domain.ProductRecord, len(stored))
	order := make([]string, 0, len(stored))
	for i, rec := range stored {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("%w: record %d: %v", domain.ErrStorageCorrupt, i, err)
		}
		if _, exists := records[rec.ID]; exists {
			return fmt.Errorf("%w: duplicate product id %q", domain.ErrStorageCorrupt, rec.ID)
		}
		records[rec.ID] = rec
		order = append(order, rec.ID)
	}

	s.records = records
	s.order = order
	s.logger.Info("inventory loaded", zap.Int("products", len(order)))
	return nil
}

func (s *RecordStore) Add(ctx context.Context, record domain.ProductRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, record.ID)
	}

	s.records[record.ID] = record
	s.order = append(s.order, record.ID)

	if err := s.persist(ctx); err != nil {
		delete(s.records, record.ID)
		s.order = s.order[:len(s.order)-1]
		return err
	}

	s.logger.Info("product added", zap.String("product_id", record.ID))
	return nil
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	prevOrder := s.order
	delete(s.records, id)
	s.order = removeID(s.order, id)

	if err := s.persist(ctx); err != nil {
		s.records[id] = rec
		s.order = prevOrder
		return err
	}

	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *RecordStore) UpdateStock(ctx context.Context, id string, quantity int) (domain.ProductRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return domain.ProductRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if quantity < 0 {
		return domain.ProductRecord{}, fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidField)
	}

	updated := rec
	updated.Quantity = quantity
	s.records[id] = updated

	if err := s.persist(ctx); err != nil {
		s.records[id] = rec
		return domain.ProductRecord{}, err
	}

	s.logger.Info("stock updated",
		zap.String("product_id", id),
		zap.Int("old_quantity", rec.Quantity),
		zap.Int("new_quantity", quantity),
	)
	return updated, nil
}

func (s *RecordStore) Get(ctx context.Context, id string) (domain.ProductRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return domain.ProductRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return rec, nil
}

// List returns a copy of all records in insertion order.
func (s *RecordStore) List(ctx context.Context) ([]domain.ProductRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot(), nil
}

// must hold s.mu
func (s *RecordStore) snapshot() []domain.ProductRecord {
	out := make([]domain.ProductRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// must hold s.mu
func (s *RecordStore) persist(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.snapshot()); err != nil {
		s.logger.Error("persist inventory failed", zap.Error(err))
		return fmt.Errorf("persist inventory: %w", err)
	}
	return nil
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
